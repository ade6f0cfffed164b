package build

// Version of promptstream. Set to tag in CI during release.
var Version = "0.0.0"

// UserAgent sent with the WebSocket upgrade request and API calls.
func UserAgent() string {
	return "promptstream/" + Version
}
