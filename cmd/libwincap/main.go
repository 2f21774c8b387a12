// Command libwincap builds the C shared library:
//
//	go build -buildmode=c-shared -o libwincap.so ./cmd/libwincap
package main

/*
#include <stdlib.h>
#include "wincap_types.h"
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/bryanchriswhite/wincap/internal/binding"
	"github.com/bryanchriswhite/wincap/internal/config"
	"github.com/bryanchriswhite/wincap/internal/logger"
	"github.com/spf13/viper"
)

var (
	surfaceOnce sync.Once
	surface     *binding.Surface
)

// getSurface builds the process-wide surface on first use. Without a
// display the encoder still works and enumeration returns empty results.
func getSurface() *binding.Surface {
	surfaceOnce.Do(func() {
		v := viper.New()
		v.SetEnvPrefix("WINCAP")
		v.AutomaticEnv()

		logger.Init("info", false)
		log := logger.WithComponent("libwincap")

		path := v.GetString("config")
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				log.Error().Err(err).Msg("No config path")
			}
			path = p
		}

		var cfgMgr *config.Manager
		if path != "" {
			m, err := config.NewManager(path)
			if err != nil {
				log.Error().Err(err).Str("path", path).Msg("Failed to load config, using defaults")
			} else {
				cfgMgr = m
			}
		}

		level := v.GetString("log_level")
		if level == "" && cfgMgr != nil {
			level = cfgMgr.Get().LogLevel
		}
		if logger.ValidLevel(level) {
			logger.SetLevel(level)
		} else if level != "" {
			log.Warn().Str("level", level).Msg("Invalid log level")
		}

		if cfgMgr == nil {
			surface = binding.NewSurface(binding.Deps{})
			return
		}
		s, err := binding.Open(cfgMgr)
		if err != nil {
			log.Error().Err(err).Msg("Window services unavailable, only encoding will work")
			s = binding.NewSurface(binding.Deps{Config: cfgMgr})
		}
		surface = s
	})
	return surface
}

// guard keeps panics from unwinding into the C caller
func guard(op string) {
	if r := recover(); r != nil {
		logPanic(op, r)
	}
}

func logPanic(op string, r interface{}) {
	logger.WithComponent("libwincap").Error().Interface("panic", r).Msg(op + " panicked")
}

func goBytes(p *C.uint8_t, n C.intptr_t) []byte {
	if p == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(n))
}

// cString copies s into C memory the caller releases with free
var cString = func(s string) *C.char {
	return C.CString(s)
}

func goString(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

//export wincap_encoder_init
func wincap_encoder_init(width, height C.intptr_t, outFile *C.char) (h C.uintptr_t) {
	defer guard("wincap_encoder_init")
	return C.uintptr_t(getSurface().EncoderInit(int(width), int(height), goString(outFile)))
}

//export wincap_encoder_ingest_yuv_frame
func wincap_encoder_ingest_yuv_frame(enc C.uintptr_t, width, height C.intptr_t, displayTime C.int64_t,
	lumaStride C.intptr_t, luma *C.uint8_t, lumaLen C.intptr_t,
	chromaStride C.intptr_t, chroma *C.uint8_t, chromaLen C.intptr_t) {
	defer guard("wincap_encoder_ingest_yuv_frame")
	getSurface().EncoderIngestYUVFrame(binding.Handle(enc), int(width), int(height), int64(displayTime),
		int(lumaStride), goBytes(luma, lumaLen), int(chromaStride), goBytes(chroma, chromaLen))
}

//export wincap_encoder_ingest_bgra_frame
func wincap_encoder_ingest_bgra_frame(enc C.uintptr_t, width, height C.intptr_t, displayTime C.int64_t,
	bytesPerRow C.intptr_t, bgra *C.uint8_t, bgraLen C.intptr_t) {
	defer guard("wincap_encoder_ingest_bgra_frame")
	getSurface().EncoderIngestBGRAFrame(binding.Handle(enc), int(width), int(height), int64(displayTime),
		int(bytesPerRow), goBytes(bgra, bgraLen))
}

//export wincap_encoder_finish
func wincap_encoder_finish(enc C.uintptr_t) {
	defer guard("wincap_encoder_finish")
	getSurface().EncoderFinish(binding.Handle(enc))
}

//export wincap_get_windows
func wincap_get_windows(filter, capture C.bool, outLen *C.intptr_t) (out *C.wincap_window_info_v2) {
	var n int
	defer func() {
		if r := recover(); r != nil {
			logPanic("wincap_get_windows", r)
			wincap_free_windows(out, C.intptr_t(n))
			out = nil
			setLen(outLen, 0)
		}
	}()
	setLen(outLen, 0)

	windows := getSurface().GetWindows(bool(filter), bool(capture))
	if len(windows) == 0 {
		return nil
	}
	// calloc so a partially filled array holds only NULL pointers
	n = len(windows)
	out = (*C.wincap_window_info_v2)(C.calloc(C.size_t(n), C.size_t(unsafe.Sizeof(C.wincap_window_info_v2{}))))
	records := unsafe.Slice(out, n)
	for i, w := range windows {
		r := &records[i]
		r.title = cString(w.Title)
		r.app_name = cString(w.AppName)
		r.bundle_id = cString(w.BundleID)
		r.is_on_screen = C.bool(w.IsOnScreen)
		r.id = C.intptr_t(w.ID)
		if len(w.Thumbnail) > 0 {
			r.thumbnail = (*C.uint8_t)(C.CBytes(w.Thumbnail))
			r.thumbnail_len = C.intptr_t(len(w.Thumbnail))
		}
	}
	setLen(outLen, n)
	return out
}

//export wincap_get_windows_info
func wincap_get_windows_info(filter, capture C.bool, outLen *C.intptr_t) (out *C.wincap_window_info) {
	var n int
	defer func() {
		if r := recover(); r != nil {
			logPanic("wincap_get_windows_info", r)
			wincap_free_windows_info(out, C.intptr_t(n))
			out = nil
			setLen(outLen, 0)
		}
	}()
	setLen(outLen, 0)

	windows := getSurface().GetWindowsInfo(bool(filter), bool(capture))
	if len(windows) == 0 {
		return nil
	}
	n = len(windows)
	out = (*C.wincap_window_info)(C.calloc(C.size_t(n), C.size_t(unsafe.Sizeof(C.wincap_window_info{}))))
	records := unsafe.Slice(out, n)
	for i, w := range windows {
		r := &records[i]
		r.title = cString(w.Title)
		r.app_name = cString(w.AppName)
		r.bundle_id = cString(w.BundleID)
		r.is_on_screen = C.bool(w.IsOnScreen)
		r.id = C.intptr_t(w.ID)
	}
	setLen(outLen, n)
	return out
}

//export wincap_get_app_icon
func wincap_get_app_icon(bundleID *C.char) (path *C.char) {
	defer func() {
		if r := recover(); r != nil {
			logPanic("wincap_get_app_icon", r)
			path = C.CString("")
		}
	}()
	return cString(getSurface().GetAppIcon(goString(bundleID)))
}

//export wincap_get_int_pairs
func wincap_get_int_pairs(outLen *C.intptr_t) (out *C.wincap_int_pair) {
	defer func() {
		if r := recover(); r != nil {
			logPanic("wincap_get_int_pairs", r)
			wincap_free_int_pairs(out)
			out = nil
			setLen(outLen, 0)
		}
	}()
	setLen(outLen, 0)

	pairs := getSurface().GetIntPairs()
	if len(pairs) == 0 {
		return nil
	}
	out = (*C.wincap_int_pair)(C.calloc(C.size_t(len(pairs)), C.size_t(unsafe.Sizeof(C.wincap_int_pair{}))))
	records := unsafe.Slice(out, len(pairs))
	for i, p := range pairs {
		records[i] = C.wincap_int_pair{first: C.intptr_t(p.First), second: C.intptr_t(p.Second)}
	}
	setLen(outLen, len(pairs))
	return out
}

//export wincap_free_windows
func wincap_free_windows(windows *C.wincap_window_info_v2, n C.intptr_t) {
	if windows == nil {
		return
	}
	for _, w := range unsafe.Slice(windows, int(n)) {
		C.free(unsafe.Pointer(w.title))
		C.free(unsafe.Pointer(w.app_name))
		C.free(unsafe.Pointer(w.bundle_id))
		C.free(unsafe.Pointer(w.thumbnail))
	}
	C.free(unsafe.Pointer(windows))
}

//export wincap_free_windows_info
func wincap_free_windows_info(windows *C.wincap_window_info, n C.intptr_t) {
	if windows == nil {
		return
	}
	for _, w := range unsafe.Slice(windows, int(n)) {
		C.free(unsafe.Pointer(w.title))
		C.free(unsafe.Pointer(w.app_name))
		C.free(unsafe.Pointer(w.bundle_id))
	}
	C.free(unsafe.Pointer(windows))
}

//export wincap_free_int_pairs
func wincap_free_int_pairs(pairs *C.wincap_int_pair) {
	if pairs != nil {
		C.free(unsafe.Pointer(pairs))
	}
}

//export wincap_free_string
func wincap_free_string(s *C.char) {
	C.free(unsafe.Pointer(s))
}

func setLen(outLen *C.intptr_t, n int) {
	if outLen != nil {
		*outLen = C.intptr_t(n)
	}
}

func main() {}
