//go:build js && wasm

// Command wasm runs the default sandbox on the page's <canvas id="sandbox">.
// A fragment shader can be swapped in from JavaScript with
// goshadersandbox.setFragment(source).
package main

import (
	"log/slog"
	"syscall/js"

	"github.com/richinsley/goshadersandbox/sandbox"
	"github.com/richinsley/goshadersandbox/webgl"
)

func main() {
	canvas, err := webgl.CanvasByID("sandbox")
	if err != nil {
		slog.Error("No canvas", "err", err)
		return
	}
	host := webgl.NewHost()

	sb, err := sandbox.New(canvas, host, sandbox.WithOnError(func(err error) {
		slog.Error("Sandbox error", "err", err)
		js.Global().Get("console").Call("error", err.Error())
	}))
	if err != nil {
		return
	}

	api := map[string]any{
		"setFragment": js.FuncOf(func(_ js.Value, args []js.Value) any {
			if len(args) > 0 {
				sb.SetFragment(args[0].String())
			}
			return nil
		}),
		"toggle": js.FuncOf(func(js.Value, []js.Value) any {
			sb.Toggle()
			return sb.IsPlaying()
		}),
		"destroy": js.FuncOf(func(js.Value, []js.Value) any {
			sb.Destroy()
			host.Release()
			canvas.Release()
			return nil
		}),
	}
	js.Global().Set("goshadersandbox", api)

	select {}
}
