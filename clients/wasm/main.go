//go:build js && wasm

// GoStego WASM — client-side watermarking for a browser page.
// Compiled with: GOOS=js GOARCH=wasm go build -o gostego.wasm ./clients/wasm/
//
// The page decodes an image into a canvas and passes ImageData.data (a
// Uint8ClampedArray of RGBA samples) to the functions below.
package main

import (
	"errors"
	"fmt"
	"syscall/js"

	"github.com/xob0t/GoStego/internal/logging"
	"github.com/xob0t/GoStego/pkg/watermark"
)

var log = logging.Std

func main() {
	log.Infof("GoStego WASM loaded")

	// Register JS-callable functions.
	js.Global().Set("goEmbedWatermark", js.FuncOf(embedWatermark))
	js.Global().Set("goExtractWatermark", js.FuncOf(extractWatermark))
	js.Global().Set("goCapacity", js.FuncOf(capacity))
	js.Global().Set("goMaxMessageLength", js.ValueOf(watermark.MaxMessageLength))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

// goEmbedWatermark(pixels, message, password) embeds in place.
// Returns {ok, encrypted} or {ok: false, code, error}.
func embedWatermark(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return failure(errors.New("need pixels, message, password"))
	}

	pix, err := copyPixels(args[0])
	if err != nil {
		return failure(err)
	}

	env, err := watermark.Embed(pix, args[1].String(), args[2].String())
	if err != nil {
		return failure(err)
	}

	js.CopyBytesToJS(args[0], pix)
	return js.ValueOf(map[string]any{
		"ok":        true,
		"encrypted": env.Encrypted,
	})
}

// goExtractWatermark(pixels, password) reads the watermark.
// Returns {ok, message, encrypted} or {ok: false, code, error}.
func extractWatermark(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return failure(errors.New("need pixels"))
	}

	pix, err := copyPixels(args[0])
	if err != nil {
		return failure(err)
	}

	password := ""
	if len(args) > 1 && args[1].Type() == js.TypeString {
		password = args[1].String()
	}

	res, err := watermark.Extract(pix, password)
	if err != nil {
		v := failure(err)
		v.Set("encrypted", res.Encrypted)
		return v
	}
	return js.ValueOf(map[string]any{
		"ok":        true,
		"message":   res.Message,
		"encrypted": res.Encrypted,
	})
}

// goCapacity(pixels) returns {capacityBits, maxMessage, hasWatermark, encrypted}.
func capacity(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return failure(errors.New("need pixels"))
	}
	pix, err := copyPixels(args[0])
	if err != nil {
		return failure(err)
	}

	info := watermark.Probe(pix)
	return js.ValueOf(map[string]any{
		"ok":           true,
		"capacityBits": info.CapacityBits,
		"maxMessage":   info.MaxMessage,
		"hasWatermark": info.HasPayload(),
		"encrypted":    info.Encrypted,
	})
}

// copyPixels copies a Uint8ClampedArray or Uint8Array into Go memory.
func copyPixels(v js.Value) ([]byte, error) {
	if v.Type() != js.TypeObject || v.Get("length").Type() != js.TypeNumber {
		return nil, fmt.Errorf("pixels must be a Uint8ClampedArray")
	}
	n := v.Get("length").Int()
	if n%4 != 0 {
		return nil, fmt.Errorf("pixel buffer length %d is not a multiple of 4", n)
	}
	pix := make([]byte, n)
	js.CopyBytesToGo(pix, v)
	return pix, nil
}

func failure(err error) js.Value {
	code := watermark.Code(err)
	if code == "internal" {
		log.Errorf("%v", err)
	}
	return js.ValueOf(map[string]any{
		"ok":    false,
		"code":  code,
		"error": err.Error(),
	})
}
