package request

import "strings"

// requestLine is the decoded first line of a request.
type requestLine struct {
	Method  string
	Target  string
	Version string
	// Defaulted is set when the line carried no version.
	Defaulted bool
}

// parseRequestLine splits "METHOD TARGET [VERSION]" on whitespace. The
// version is optional and defaults to HTTP/1.1.
func parseRequestLine(line string) (requestLine, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return requestLine{}, errSyntax
	}
	if len(parts) < 2 {
		return requestLine{Method: parts[0]}, errMissingURI
	}

	rl := requestLine{
		Method:    parts[0],
		Target:    parts[1],
		Version:   defaultVersion,
		Defaulted: true,
	}
	if len(parts) > 2 {
		rl.Version = parts[2]
		rl.Defaulted = false
	}
	return rl, nil
}

// isValidVersion checks if HTTP version is supported
func isValidVersion(version string) bool {
	return version == "HTTP/1.0" || version == "HTTP/1.1"
}
