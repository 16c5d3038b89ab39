package domain

import "strings"

// DefaultQualifier is the runtime endpoint qualifier used when none is given.
const DefaultQualifier = "DEFAULT"

var runtimeARNEscaper = strings.NewReplacer(":", "%3A", "/", "%2F")

// EncodeRuntimeARN percent-encodes a runtime ARN for use as a URL path
// segment. The runtime control plane expects exactly ":" as "%3A" and "/" as
// "%2F"; all other ARN characters are passed through.
func EncodeRuntimeARN(arn string) string {
	return runtimeARNEscaper.Replace(arn)
}

// RuntimeInvocationURL builds the invocation endpoint for a deployed runtime:
// <base>/runtimes/<encoded-arn>/invocations?qualifier=<qualifier>.
// An empty qualifier selects DefaultQualifier.
func RuntimeInvocationURL(baseURL, runtimeARN, qualifier string) string {
	if qualifier == "" {
		qualifier = DefaultQualifier
	}
	base := strings.TrimRight(baseURL, "/")
	return base + "/runtimes/" + EncodeRuntimeARN(runtimeARN) + "/invocations?qualifier=" + qualifier
}
