package request

// Method is a request verb. Matching is case-sensitive.
type Method string

const (
	MethodGet       Method = "GET"
	MethodPut       Method = "PUT"
	MethodPost      Method = "POST"
	MethodDelete    Method = "DELETE"
	MethodHead      Method = "HEAD"
	MethodOptions   Method = "OPTIONS"
	MethodTrace     Method = "TRACE"
	MethodConnect   Method = "CONNECT"
	MethodPatch     Method = "PATCH"
	MethodPropfind  Method = "PROPFIND"
	MethodProppatch Method = "PROPPATCH"
	MethodMkcol     Method = "MKCOL"
	MethodMove      Method = "MOVE"
	MethodCopy      Method = "COPY"
	MethodLock      Method = "LOCK"
	MethodUnlock    Method = "UNLOCK"
	MethodNotify    Method = "NOTIFY"
	MethodSubscribe Method = "SUBSCRIBE"
)

var knownMethods = map[Method]struct{}{
	MethodGet: {}, MethodPut: {}, MethodPost: {}, MethodDelete: {}, MethodHead: {},
	MethodOptions: {}, MethodTrace: {}, MethodConnect: {}, MethodPatch: {},
	MethodPropfind: {}, MethodProppatch: {}, MethodMkcol: {}, MethodMove: {},
	MethodCopy: {}, MethodLock: {}, MethodUnlock: {}, MethodNotify: {}, MethodSubscribe: {},
}

// LookupMethod returns the Method for s if it is one of the supported verbs.
func LookupMethod(s string) (Method, bool) {
	m := Method(s)
	_, ok := knownMethods[m]
	return m, ok
}

func (m Method) String() string { return string(m) }
