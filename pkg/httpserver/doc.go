// Package httpserver runs an http.Handler with configured timeouts and
// graceful shutdown. Run listens on the configured address; Serve uses a
// listener the caller already bound, which is how the emulator reports the
// port it picked for "127.0.0.1:0".
package httpserver
