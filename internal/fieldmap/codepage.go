package fieldmap

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Well-known MS code page ids.
const (
	CodePageUTF8   = 65001
	CodePageASCII  = 20127
	CodePageLatin1 = 28591
)

var charsetToCP = map[string]int{
	"utf-8":        CodePageUTF8,
	"us-ascii":     CodePageASCII,
	"ascii":        CodePageASCII,
	"iso-8859-1":   CodePageLatin1,
	"iso-8859-2":   28592,
	"iso-8859-5":   28595,
	"iso-8859-7":   28597,
	"iso-8859-9":   28599,
	"iso-8859-15":  28605,
	"windows-1250": 1250,
	"windows-1251": 1251,
	"windows-1252": 1252,
	"windows-1253": 1253,
	"windows-1254": 1254,
	"windows-1255": 1255,
	"windows-1256": 1256,
	"windows-1257": 1257,
	"windows-1258": 1258,
	"koi8-r":       20866,
	"koi8-u":       21866,
	"shift_jis":    932,
	"gb2312":       936,
	"gbk":          936,
	"euc-kr":       949,
	"big5":         950,
	"utf-16":       1200,
}

var cpToCharset = map[int]string{
	CodePageUTF8:   "utf-8",
	CodePageASCII:  "us-ascii",
	CodePageLatin1: "iso-8859-1",
	28592:          "iso-8859-2",
	28595:          "iso-8859-5",
	28597:          "iso-8859-7",
	28599:          "iso-8859-9",
	28605:          "iso-8859-15",
	1250:           "windows-1250",
	1251:           "windows-1251",
	1252:           "windows-1252",
	1253:           "windows-1253",
	1254:           "windows-1254",
	1255:           "windows-1255",
	1256:           "windows-1256",
	1257:           "windows-1257",
	1258:           "windows-1258",
	20866:          "koi8-r",
	21866:          "koi8-u",
	932:            "shift_jis",
	936:            "gb2312",
	949:            "euc-kr",
	950:            "big5",
	1200:           "utf-16",
}

// CharsetToCodePage maps a MIME charset name to its MS code page id.
func CharsetToCodePage(cs string) (int, bool) {
	cp, ok := charsetToCP[strings.ToLower(strings.TrimSpace(cs))]
	return cp, ok
}

// CodePageToCharset maps an MS code page id back to a MIME charset name.
func CodePageToCharset(cp int) (string, bool) {
	cs, ok := cpToCharset[cp]
	return cs, ok
}

// EncodingFor returns the text encoding for a charset name, or nil for
// UTF-8/unknown (no conversion needed or possible).
func EncodingFor(charset string) encoding.Encoding {
	cs := strings.ToLower(strings.TrimSpace(charset))
	if cs == "" || cs == "utf-8" || cs == "us-ascii" || cs == "ascii" {
		return nil
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return nil
	}
	return enc
}
