package main

/*
#include <stddef.h>
#include <stdlib.h>
#include "wincap_types.h"

enum {
	WC_INFO_SIZE, WC_INFO_TITLE, WC_INFO_APP, WC_INFO_BUNDLE, WC_INFO_ON_SCREEN, WC_INFO_ID,
	WC_V2_SIZE, WC_V2_TITLE, WC_V2_APP, WC_V2_BUNDLE, WC_V2_ON_SCREEN, WC_V2_ID, WC_V2_THUMB, WC_V2_THUMB_LEN,
	WC_PAIR_SIZE, WC_PAIR_FIRST, WC_PAIR_SECOND,
	WC_LAYOUT_LEN
};

static void wc_layout(size_t *out) {
	out[WC_INFO_SIZE] = sizeof(wincap_window_info);
	out[WC_INFO_TITLE] = offsetof(wincap_window_info, title);
	out[WC_INFO_APP] = offsetof(wincap_window_info, app_name);
	out[WC_INFO_BUNDLE] = offsetof(wincap_window_info, bundle_id);
	out[WC_INFO_ON_SCREEN] = offsetof(wincap_window_info, is_on_screen);
	out[WC_INFO_ID] = offsetof(wincap_window_info, id);

	out[WC_V2_SIZE] = sizeof(wincap_window_info_v2);
	out[WC_V2_TITLE] = offsetof(wincap_window_info_v2, title);
	out[WC_V2_APP] = offsetof(wincap_window_info_v2, app_name);
	out[WC_V2_BUNDLE] = offsetof(wincap_window_info_v2, bundle_id);
	out[WC_V2_ON_SCREEN] = offsetof(wincap_window_info_v2, is_on_screen);
	out[WC_V2_ID] = offsetof(wincap_window_info_v2, id);
	out[WC_V2_THUMB] = offsetof(wincap_window_info_v2, thumbnail);
	out[WC_V2_THUMB_LEN] = offsetof(wincap_window_info_v2, thumbnail_len);

	out[WC_PAIR_SIZE] = sizeof(wincap_int_pair);
	out[WC_PAIR_FIRST] = offsetof(wincap_int_pair, first);
	out[WC_PAIR_SECOND] = offsetof(wincap_int_pair, second);
}
*/
import "C"

import (
	"unsafe"

	"github.com/bryanchriswhite/wincap/internal/binding"
)

// Go-side views of the exported C surface, for callers that cannot use cgo
// directly such as the package tests.

// recordLayout holds a record's size followed by its field offsets in
// declaration order, as the C compiler lays them out
type recordLayout struct {
	Size    uintptr
	Offsets []uintptr
}

func cLayouts() (info, v2, pair recordLayout) {
	var raw [C.WC_LAYOUT_LEN]C.size_t
	C.wc_layout(&raw[0])
	span := func(from, to int) recordLayout {
		l := recordLayout{Size: uintptr(raw[from])}
		for i := from + 1; i < to; i++ {
			l.Offsets = append(l.Offsets, uintptr(raw[i]))
		}
		return l
	}
	return span(C.WC_INFO_SIZE, C.WC_V2_SIZE), span(C.WC_V2_SIZE, C.WC_PAIR_SIZE), span(C.WC_PAIR_SIZE, C.WC_LAYOUT_LEN)
}

// useSurface replaces the lazily opened surface
func useSurface(s *binding.Surface) {
	surfaceOnce.Do(func() {})
	surface = s
}

// failCString makes cString panic for one value until restore is called
func failCString(value string) (restore func()) {
	prev := cString
	cString = func(s string) *C.char {
		if s == value {
			panic("cstring: " + s)
		}
		return prev(s)
	}
	return func() { cString = prev }
}

func encoderInit(width, height int, outFile string) uintptr {
	cs := C.CString(outFile)
	defer C.free(unsafe.Pointer(cs))
	return uintptr(wincap_encoder_init(C.intptr_t(width), C.intptr_t(height), cs))
}

func encoderIngestBGRA(h uintptr, width, height int, ts int64, bytesPerRow int, bgra []byte) {
	var p *C.uint8_t
	if len(bgra) > 0 {
		p = (*C.uint8_t)(C.CBytes(bgra))
		defer C.free(unsafe.Pointer(p))
	}
	wincap_encoder_ingest_bgra_frame(C.uintptr_t(h), C.intptr_t(width), C.intptr_t(height), C.int64_t(ts),
		C.intptr_t(bytesPerRow), p, C.intptr_t(len(bgra)))
}

func encoderIngestYUV(h uintptr, width, height int, ts int64, lumaStride int, luma []byte, chromaStride int, chroma []byte) {
	var lp, cp *C.uint8_t
	if len(luma) > 0 {
		lp = (*C.uint8_t)(C.CBytes(luma))
		defer C.free(unsafe.Pointer(lp))
	}
	if len(chroma) > 0 {
		cp = (*C.uint8_t)(C.CBytes(chroma))
		defer C.free(unsafe.Pointer(cp))
	}
	wincap_encoder_ingest_yuv_frame(C.uintptr_t(h), C.intptr_t(width), C.intptr_t(height), C.int64_t(ts),
		C.intptr_t(lumaStride), lp, C.intptr_t(len(luma)), C.intptr_t(chromaStride), cp, C.intptr_t(len(chroma)))
}

func encoderFinish(h uintptr) {
	wincap_encoder_finish(C.uintptr_t(h))
}

// windowsResult is what a C caller sees from wincap_get_windows
type windowsResult struct {
	Null    bool
	Len     int
	Records []binding.WindowInfoV2
}

// getWindows calls wincap_get_windows, copies the records out and releases
// them with wincap_free_windows
func getWindows(filter, capture bool) windowsResult {
	outLen := C.intptr_t(-1)
	out := wincap_get_windows(C.bool(filter), C.bool(capture), &outLen)
	res := windowsResult{Null: out == nil, Len: int(outLen)}
	if out == nil {
		return res
	}
	defer wincap_free_windows(out, outLen)

	for _, r := range unsafe.Slice(out, int(outLen)) {
		rec := binding.WindowInfoV2{
			Title:      C.GoString(r.title),
			AppName:    C.GoString(r.app_name),
			BundleID:   C.GoString(r.bundle_id),
			IsOnScreen: bool(r.is_on_screen),
			ID:         int(r.id),
		}
		if r.thumbnail != nil {
			rec.Thumbnail = C.GoBytes(unsafe.Pointer(r.thumbnail), C.int(r.thumbnail_len))
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// getWindowsInfo is getWindows for the legacy records
func getWindowsInfo(filter, capture bool) (null bool, records []binding.WindowInfo) {
	outLen := C.intptr_t(-1)
	out := wincap_get_windows_info(C.bool(filter), C.bool(capture), &outLen)
	if out == nil {
		return true, nil
	}
	defer wincap_free_windows_info(out, outLen)

	for _, r := range unsafe.Slice(out, int(outLen)) {
		records = append(records, binding.WindowInfo{
			Title:      C.GoString(r.title),
			AppName:    C.GoString(r.app_name),
			BundleID:   C.GoString(r.bundle_id),
			IsOnScreen: bool(r.is_on_screen),
			ID:         int(r.id),
		})
	}
	return false, records
}

func getIntPairs() (null bool, pairs []binding.IntPair) {
	outLen := C.intptr_t(-1)
	out := wincap_get_int_pairs(&outLen)
	if out == nil {
		return true, nil
	}
	defer wincap_free_int_pairs(out)

	for _, p := range unsafe.Slice(out, int(outLen)) {
		pairs = append(pairs, binding.IntPair{First: int(p.first), Second: int(p.second)})
	}
	return false, pairs
}

func getAppIcon(bundleID string) string {
	cs := C.CString(bundleID)
	defer C.free(unsafe.Pointer(cs))
	path := wincap_get_app_icon(cs)
	defer wincap_free_string(path)
	return C.GoString(path)
}
