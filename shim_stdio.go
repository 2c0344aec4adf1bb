package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// printfSpec is one decoded %-conversion from a format string: flags,
// width, precision, length modifier, and the conversion character
// (§4.J printf family).
type printfSpec struct {
	flagMinus, flagZero, flagPlus, flagSpace, flagHash bool
	width, precision                                   int
	hasPrecision                                        bool
	length                                              string // "", "h", "hh", "l", "ll", "j", "t", "z"
	conv                                                byte
}

// FormatPrintf renders fmtStr against successive arguments read from
// args, supporting the flag/width/precision/length-modifier grammar
// listed in §4.J: flags `# 0 - ' ' +`, `*` or decimal width, `*` or
// decimal precision, length modifiers `h l j t z` (including doubled
// `hh`/`ll`), and conversions `% s d X`.
func FormatPrintf(fmtStr string, args *ArgReader, mem Memory) string {
	var out strings.Builder
	i := 0
	for i < len(fmtStr) {
		c := fmtStr[i]
		if c != '%' {
			out.WriteByte(c)
			i++
			continue
		}
		spec, next := parsePrintfSpec(fmtStr, i, args)
		i = next
		out.WriteString(renderPrintfSpec(spec, args, mem))
	}
	return out.String()
}

func parsePrintfSpec(s string, i int, args *ArgReader) (printfSpec, int) {
	var spec printfSpec
	i++ // skip '%'

	for i < len(s) {
		switch s[i] {
		case '-':
			spec.flagMinus = true
		case '0':
			spec.flagZero = true
		case '+':
			spec.flagPlus = true
		case ' ':
			spec.flagSpace = true
		case '#':
			spec.flagHash = true
		default:
			goto doneFlags
		}
		i++
	}
doneFlags:

	if i < len(s) && s[i] == '*' {
		spec.width = int(args.I32())
		i++
	} else {
		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i > start {
			spec.width, _ = strconv.Atoi(s[start:i])
		}
	}

	if i < len(s) && s[i] == '.' {
		spec.hasPrecision = true
		i++
		if i < len(s) && s[i] == '*' {
			spec.precision = int(args.I32())
			i++
		} else {
			start := i
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				i++
			}
			spec.precision, _ = strconv.Atoi(s[start:i])
		}
	}

	for i < len(s) {
		switch s[i] {
		case 'h', 'l':
			if i+1 < len(s) && s[i+1] == s[i] {
				spec.length = s[i : i+2]
				i += 2
			} else {
				spec.length = s[i : i+1]
				i++
			}
			continue
		case 'j', 't', 'z':
			spec.length = s[i : i+1]
			i++
			continue
		}
		break
	}

	if i < len(s) {
		spec.conv = s[i]
		i++
	}
	return spec, i
}

func renderPrintfSpec(spec printfSpec, args *ArgReader, mem Memory) string {
	var body string
	switch spec.conv {
	case '%':
		return "%"
	case 'd', 'i':
		v := args.I32()
		body = strconv.FormatInt(int64(v), 10)
		if spec.flagPlus && v >= 0 {
			body = "+" + body
		} else if spec.flagSpace && v >= 0 {
			body = " " + body
		}
	case 'u':
		body = strconv.FormatUint(uint64(args.U32()), 10)
	case 'X':
		body = strings.ToUpper(strconv.FormatUint(uint64(args.U32()), 16))
		if spec.flagHash && body != "0" {
			body = "0X" + body
		}
	case 'x':
		body = strconv.FormatUint(uint64(args.U32()), 16)
		if spec.flagHash && body != "0" {
			body = "0x" + body
		}
	case 'o':
		body = strconv.FormatUint(uint64(args.U32()), 8)
	case 'c':
		body = string(rune(args.U32()))
	case 's':
		body = args.CString()
		if spec.hasPrecision && spec.precision < len(body) {
			body = body[:spec.precision]
		}
	case 'p':
		body = fmt.Sprintf("0x%X", args.Ptr())
	default:
		return "%" + string(spec.conv)
	}

	if spec.flagZero && !spec.flagMinus && spec.conv != 's' && len(body) < spec.width {
		neg := strings.HasPrefix(body, "-")
		digits := body
		if neg {
			digits = body[1:]
		}
		pad := spec.width - len(body)
		body = strings.Repeat("0", pad) + digits
		if neg {
			body = "-" + body
		}
		return body
	}

	if len(body) < spec.width {
		pad := strings.Repeat(" ", spec.width-len(body))
		if spec.flagMinus {
			body = body + pad
		} else {
			body = pad + body
		}
	}
	return body
}

// shimSprintf implements sprintf(dst, fmt, ...): writes the formatted
// string plus a NUL terminator to guest memory and returns bytes written
// excluding the terminator (§4.J).
func shimSprintf(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	dst := args.Ptr()
	fmtStr := args.CString()
	out := FormatPrintf(fmtStr, args, NewMemory(cpu))
	NewMemory(cpu).WriteCString(dst, out)
	return uint32(len(out))
}

// shimPrintf implements printf(fmt, ...): converts CR line endings to LF,
// decodes the text from Mac-Roman, and writes it to the process's stdout.
// It returns the number of guest bytes formatted. There is no stdio sink
// abstraction: printf always targets stdout.
func shimPrintf(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	fmtStr := args.CString()
	out := FormatPrintf(fmtStr, args, NewMemory(cpu))
	decoded := DecodeMacRoman(CRtoLF([]byte(out)))
	st.Log.Debugw("guest printf", "output", decoded)
	os.Stdout.WriteString(decoded)
	return uint32(len(out))
}

// RegisterStdioShims binds the printf family.
func RegisterStdioShims(d *Dispatcher) {
	d.Bind("printf", shimPrintf)
	d.Bind("sprintf", shimSprintf)
}
