package qat

import (
	"fmt"
	"strconv"
	"strings"
)

// DriverArgs is the parsed form of the comma-separated driver-argument
// string this core reads: `legacy_capa=1,sym_enq_threshold=16`. Unknown
// keys are ignored, since the full capability-table parser this string
// also feeds is out of scope here.
type DriverArgs struct {
	LegacyCapa       bool
	SymEnqThreshold  uint
}

// ParseDriverArgs parses a driver argument string. An empty string yields
// the zero-value DriverArgs. A malformed `key=value` token (missing `=`,
// or a value that fails to parse for a recognized key) is an Invalid
// error; unrecognized keys are silently skipped.
func ParseDriverArgs(s string) (DriverArgs, error) {
	var args DriverArgs
	if strings.TrimSpace(s) == "" {
		return args, nil
	}

	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		kv := strings.SplitN(tok, "=", 2)
		if len(kv) != 2 {
			return DriverArgs{}, NewError("parse_driver_args", CodeInvalid,
				fmt.Sprintf("malformed token %q: expected key=value", tok))
		}
		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])

		switch key {
		case "legacy_capa":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return DriverArgs{}, NewError("parse_driver_args", CodeInvalid,
					fmt.Sprintf("legacy_capa: %v", err))
			}
			args.LegacyCapa = b
		case "sym_enq_threshold":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return DriverArgs{}, NewError("parse_driver_args", CodeInvalid,
					fmt.Sprintf("sym_enq_threshold: %v", err))
			}
			args.SymEnqThreshold = uint(n)
		default:
			// Forward-compatible with the larger out-of-scope
			// capability-table parser: unknown keys are not our business.
		}
	}
	return args, nil
}
