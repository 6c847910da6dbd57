package rmw

import (
	"strings"

	"github.com/robomesh/meshkit/errors"
)

// ArgsMarker separates opaque process arguments from middleware arguments.
const ArgsMarker = "--mesh-args"

// ParsedArgs holds the interpreted portion of the process arguments.
type ParsedArgs struct {
	// RemapRules maps from-names to to-names, applied to node and topic
	// names by the layers above.
	RemapRules map[string]string

	// Params holds `-p key:=value` parameter overrides.
	Params map[string]string
}

// ParseArgs interprets the argument region after ArgsMarker. Arguments
// before the marker (typically the program name and application flags) are
// ignored. Inside the region, `-r`/`--remap from:=to` collects remap rules
// and `-p`/`--param key:=value` collects parameter overrides, until a
// bare `--` or the end of the arguments. Anything else in the region is an
// INVALID_ARGS error.
func ParseArgs(args []string) (*ParsedArgs, error) {
	parsed := &ParsedArgs{
		RemapRules: make(map[string]string),
		Params:     make(map[string]string),
	}

	start := -1
	for i, a := range args {
		if a == ArgsMarker {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return parsed, nil
	}

	i := start
	for i < len(args) {
		switch args[i] {
		case "--":
			return parsed, nil
		case "-r", "--remap":
			from, to, err := splitRule(args, i)
			if err != nil {
				return nil, err
			}
			parsed.RemapRules[from] = to
			i += 2
		case "-p", "--param":
			key, value, err := splitRule(args, i)
			if err != nil {
				return nil, err
			}
			parsed.Params[key] = value
			i += 2
		default:
			return nil, errors.Newf(errors.ErrCodeInvalidArgs,
				"unrecognized middleware argument %q", args[i])
		}
	}
	return parsed, nil
}

// splitRule parses the `lhs:=rhs` operand following a flag at index i.
func splitRule(args []string, i int) (string, string, error) {
	if i+1 >= len(args) {
		return "", "", errors.Newf(errors.ErrCodeInvalidArgs,
			"%s is missing its operand", args[i])
	}
	rule := args[i+1]
	lhs, rhs, found := strings.Cut(rule, ":=")
	if !found || lhs == "" || rhs == "" {
		return "", "", errors.Newf(errors.ErrCodeInvalidArgs,
			"malformed rule %q, want from:=to", rule)
	}
	return lhs, rhs, nil
}
