package entity

// windows1252Remap maps the 32 C1-control code points 0x80-0x9F, when they
// appear as the target of a numeric character reference inside HTML content,
// to the Windows-1252 punctuation they were almost always meant to encode.
// Browsers have applied this remap to "&#146;"-style references for as long
// as HTML quirks mode has existed; grounded on the teacher's windows1252Table
// (xml/util.go), trimmed to just the C1 range this remap actually touches.
var windows1252Remap = [32]rune{
	0x20AC, 0x0081, 0x201A, 0x0192, 0x201E, 0x2026, 0x2020, 0x2021,
	0x02C6, 0x2030, 0x0160, 0x2039, 0x0152, 0x008D, 0x017D, 0x008F,
	0x0090, 0x2018, 0x2019, 0x201C, 0x201D, 0x2022, 0x2013, 0x2014,
	0x02DC, 0x2122, 0x0161, 0x203A, 0x0153, 0x009D, 0x017E, 0x0178,
}

// remapWindows1252 applies windows1252Remap to cp when cp falls in the
// 0x80-0x9F C1 range; it returns cp unchanged otherwise.
func remapWindows1252(cp rune) rune {
	if cp >= 0x80 && cp <= 0x9F {
		return windows1252Remap[cp-0x80]
	}
	return cp
}
