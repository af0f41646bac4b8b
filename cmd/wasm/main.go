//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/texkey"
)

// TextureRequest is a texture lookup request from JS.
type TextureRequest struct {
	Archive int    `json:"archive"`
	Record  int    `json:"record"`
	Frame   int    `json:"frame"`
	Climate string `json:"climate"`
	Weather string `json:"weather"`
}

type TextureResponse struct {
	Key     int64  `json:"key"`
	Archive int    `json:"archive"`
	Variant string `json:"variant"`
	URL     string `json:"url"`
}

// resolveTexture is called from JavaScript. Decoding needs the archives, so
// the browser only computes keys and the URL of a `climatetex serve` texture.
func resolveTexture(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing arguments")
	}

	var req TextureRequest
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return errorResult(fmt.Sprintf("failed to parse request: %v", err))
	}

	ct, err := climate.ParseType(req.Climate)
	if err != nil {
		return errorResult(err.Error())
	}
	wt, err := climate.ParseWeather(req.Weather)
	if err != nil {
		return errorResult(err.Error())
	}

	resp := TextureResponse{
		Archive: req.Archive,
		Variant: climate.General.String(),
		URL: fmt.Sprintf("/textures/%d/%d/%d.png?climate=%s&weather=%s&flags=climate",
			req.Archive, req.Record, req.Frame, ct, wt),
	}

	sub := climate.Resolve(req.Archive, climate.Context{Type: ct, Weather: wt})
	var key texkey.Key
	if sub.PassThrough {
		key, err = texkey.Direct(req.Archive, req.Record, req.Frame)
	} else {
		key, err = texkey.Climate(int(ct), int(sub.Set), req.Record)
		resp.Archive = sub.Archive
		resp.Variant = sub.Variant.String()
	}
	if err != nil {
		return errorResult(err.Error())
	}
	resp.Key = int64(key)

	out, err := json.Marshal(resp)
	if err != nil {
		return errorResult(err.Error())
	}
	return string(out)
}

// errorResult builds a value js.ValueOf accepts.
func errorResult(msg string) map[string]interface{} {
	return map[string]interface{}{"error": msg}
}

func main() {
	c := make(chan struct{})

	js.Global().Set("climatetexResolve", js.FuncOf(resolveTexture))

	fmt.Println("climatetex WASM module loaded")
	<-c
}
