package sandbox

// bridgeStub describes one RPC stub the generated api_caller module
// exposes to in-sandbox code. Listing stubs as a data table rather than
// generating them from runtime attribute access keeps the bridge module
// statically analyzable on both sides of the wire.
type bridgeStub struct {
	// Name is the Python-callable function name, e.g. "send_message".
	Name string
	// Route is the host-side HTTP path the stub posts to.
	Route string
	// Args lists the stub's positional argument names, for doc/signature
	// generation only; the stub forwards them verbatim as a JSON object.
	Args []string
}

// bridgeStubs is the fixed set of capabilities exposed to sandboxed code.
// Extending the bridge is a data change here, not a codegen change.
var bridgeStubs = []bridgeStub{
	{Name: "send_message", Route: "/v1/bridge/send_message", Args: []string{"content"}},
	{Name: "upload_file", Route: "/v1/bridge/upload_file", Args: []string{"file_path", "file_name"}},
	{Name: "get_preset_info", Route: "/v1/bridge/preset_info", Args: []string{}},
	{Name: "request_agent_stop", Route: "/v1/bridge/agent_stop", Args: []string{"reason"}},
}
