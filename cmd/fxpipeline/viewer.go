package main

import (
	"net/http"
)

const viewerPage = `<!DOCTYPE html>
<html>
<head><title>fxpipeline</title></head>
<body style="margin:0;background:#111">
<img id="frame" style="display:block;margin:auto;max-width:100vw;max-height:100vh">
<script>
const img = document.getElementById("frame");
function connect() {
	const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
	ws.binaryType = "blob";
	ws.onmessage = (ev) => {
		const url = URL.createObjectURL(ev.data);
		img.onload = () => URL.revokeObjectURL(url);
		img.src = url;
	};
	ws.onclose = () => setTimeout(connect, 1000);
}
connect();
</script>
</body>
</html>
`

func viewerHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(viewerPage))
}
