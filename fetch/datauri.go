// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fetch

import (
	"fmt"
	"image"
	"image/color"
	"net/url"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// dataURI is a parsed data URI in one of the forms
//
//	data:text/plain[;param=value...],text
//	data:text/filename[;param=value...],path
//	data:image/*[;param=value...];base64,data
//	data:image/*[;param=value...];name,colorname
//	data:image/*[;param=value...];web,#rrggbb
type dataURI struct {
	typ   string
	mtyp  string
	param map[string]string
	val   string
	enc   string
}

func parseDataURI(uri string) (dataURI, error) {
	u, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return dataURI{}, fmt.Errorf("invalid scheme: %s", uri)
	}
	mtyp, val, ok := strings.Cut(u, ",")
	if !ok {
		return dataURI{}, fmt.Errorf("invalid data uri: %s", uri)
	}
	typ, _, ok := strings.Cut(mtyp, "/")
	if !ok {
		return dataURI{}, fmt.Errorf("invalid data uri: %s", uri)
	}
	d := dataURI{typ: typ, val: val}
	var par string
	switch typ {
	case "text":
		d.mtyp, par, _ = strings.Cut(mtyp, ";")
	case "image":
		mtyp, d.enc, ok = cutLast(mtyp, ";")
		if !ok {
			return dataURI{}, fmt.Errorf("invalid image data uri: %s", uri)
		}
		switch d.enc {
		case "base64", "name", "web":
			d.mtyp, par, _ = strings.Cut(mtyp, ";")
		default:
			return dataURI{}, fmt.Errorf("invalid encoding in image uri: %s", uri)
		}
	default:
		return dataURI{}, fmt.Errorf("unknown mime type: %s", uri)
	}
	var err error
	d.param, err = getParams(par)
	if err != nil {
		return dataURI{}, err
	}
	return d, nil
}

func getParams(par string) (map[string]string, error) {
	if par == "" {
		return nil, nil
	}
	param := make(map[string]string)
	var err error
	for _, kv := range strings.Split(par, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			return nil, fmt.Errorf("invalid params: %s", par)
		}
		param[strings.TrimSpace(k)], err = url.PathUnescape(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
	}
	return param, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}

// fgbg returns the fg and bg parameter colours, defaulting to the provided
// colours when a parameter is absent.
func fgbg(fg, bg color.Color, param map[string]string) (_fg, _bg color.Color, err error) {
	if v, ok := param["fg"]; ok {
		_fg, err = ParseColor(v)
		if err != nil {
			return fg, bg, err
		}
	} else {
		_fg = fg
	}
	if v, ok := param["bg"]; ok {
		_bg, err = ParseColor(v)
		if err != nil {
			return fg, bg, err
		}
	} else {
		_bg = bg
	}
	return _fg, _bg, nil
}

// ParseColor returns the colour for a web colour in #rgb or #rrggbb
// form, or for one of the ANSI colour names black, red, green, yellow,
// blue, magenta, cyan and white, optionally prefixed with "hi".
func ParseColor(val string) (color.Color, error) {
	if strings.HasPrefix(val, "#") {
		return webColor(val)
	}
	col, ok := ansiColor[val]
	if !ok {
		return nil, fmt.Errorf("invalid color name: %s", val)
	}
	return col.C, nil
}

var ansiColor = map[string]*image.Uniform{
	"black":     {C: color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}},
	"red":       {C: color.RGBA{R: 0x80, G: 0x00, B: 0x00, A: 0xff}},
	"green":     {C: color.RGBA{R: 0x00, G: 0x80, B: 0x00, A: 0xff}},
	"yellow":    {C: color.RGBA{R: 0x80, G: 0x80, B: 0x00, A: 0xff}},
	"blue":      {C: color.RGBA{R: 0x00, G: 0x00, B: 0x80, A: 0xff}},
	"magenta":   {C: color.RGBA{R: 0x80, G: 0x00, B: 0x80, A: 0xff}},
	"cyan":      {C: color.RGBA{R: 0x00, G: 0x80, B: 0x80, A: 0xff}},
	"white":     {C: color.RGBA{R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff}},
	"hiblack":   {C: color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}},
	"hired":     {C: color.RGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}},
	"higreen":   {C: color.RGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff}},
	"hiyellow":  {C: color.RGBA{R: 0xff, G: 0xff, B: 0x00, A: 0xff}},
	"hiblue":    {C: color.RGBA{R: 0x00, G: 0x00, B: 0xff, A: 0xff}},
	"himagenta": {C: color.RGBA{R: 0xff, G: 0x00, B: 0xff, A: 0xff}},
	"hicyan":    {C: color.RGBA{R: 0x00, G: 0xff, B: 0xff, A: 0xff}},
	"hiwhite":   {C: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
}

func webColor(val string) (color.Color, error) {
	c, err := colorful.Hex(val)
	if err != nil {
		return nil, fmt.Errorf("invalid web color: %s", val)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}
