package sandbox

import (
	"fmt"
	"strings"
)

// codePreambleTemplate is prepended to every user code submission. It
// wires up the exit-code conventions the launcher script's sentinel table
// depends on (8 = agent stop, 9 = manual stop) and imports the generated
// api_caller bridge module.
const codePreambleTemplate = `import sys
import traceback

import api_caller  # noqa: F401  generated bridge module, see api_caller.py


def agent_stop(reason: str = "") -> "NoReturn":
    """Request an orderly agent-initiated stop of the current execution."""
    if reason:
        print(f"[agent stop] {reason}")
    sys.exit(8)


def manual_stop(reason: str = "") -> "NoReturn":
    """Request a user-initiated stop of the current execution."""
    if reason:
        print(f"[manual stop] {reason}")
    sys.exit(9)
`

// RenderCodePreamble prepends the fixed preamble to user code. The
// preamble is stripped of trailing whitespace and separated from the user
// code by exactly one blank line, matching the launcher script's
// expectation that run_script.py is a single well-formed module.
func RenderCodePreamble(userCode string) string {
	return strings.TrimSpace(codePreambleTemplate) + "\n\n" + userCode
}

// RenderAPICaller generates the bridge module text for one execution. The
// module, once placed in the share directory as api_caller.py.code and
// copied to api_caller.py by the launcher script, lets in-sandbox code
// call back into the host: every stub identifies itself with the
// container key (authorization/attribution) and the chat key (side-effect
// routing).
func RenderAPICaller(containerKey, chatKey string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `"""Generated bridge module for container %s / chat %s.

Do not edit: regenerated for every execution.
"""
import json
import os
import urllib.request

_CONTAINER_KEY = %q
_CHAT_KEY = %q
_HOST_BASE_URL = os.environ.get("NEKRO_HOST_BASE_URL", "http://host.docker.internal:8090")
_BRIDGE_TOKEN = os.environ.get("NEKRO_BRIDGE_TOKEN", "")


def _call(route: str, payload: dict):
    body = dict(payload)
    body["container_key"] = _CONTAINER_KEY
    body["chat_key"] = _CHAT_KEY
    data = json.dumps(body).encode("utf-8")
    req = urllib.request.Request(
        _HOST_BASE_URL + route,
        data=data,
        method="POST",
        headers={
            "Content-Type": "application/json",
            "Authorization": "Bearer " + _BRIDGE_TOKEN,
        },
    )
    with urllib.request.urlopen(req, timeout=30) as resp:
        return json.loads(resp.read().decode("utf-8"))


`, containerKey, chatKey, containerKey, chatKey)

	for _, stub := range bridgeStubs {
		fmt.Fprintf(&b, "def %s(%s):\n", stub.Name, strings.Join(stub.Args, ", "))
		fmt.Fprintf(&b, "    return _call(%q, {%s})\n\n\n", stub.Route, argsDict(stub.Args))
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func argsDict(args []string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%q: %s", a, a)
	}
	return strings.Join(parts, ", ")
}
