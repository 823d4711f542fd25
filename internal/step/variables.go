package step

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tomatool/tomato-ui/internal/datagen"
)

const randomPrefix = "RANDOM_"

var intRange = regexp.MustCompile(`^(-?\d+)-(-?\d+)$`)

// Lookup reads configuration values by dotted path
type Lookup interface {
	Get(path string, def any) any
}

// Resolver replaces ${...} placeholders in step arguments.
// ${RANDOM_<TYPE>[:PARAMS]} generates data, any other name is read from configuration.
type Resolver struct {
	config Lookup
	data   *datagen.Generator
	strict bool
}

// NewResolver creates a resolver. In strict mode a name missing from
// configuration is an error instead of being left as is.
func NewResolver(config Lookup, data *datagen.Generator, strict bool) *Resolver {
	if data == nil {
		data = datagen.New(0)
	}
	return &Resolver{config: config, data: data, strict: strict}
}

// ResolveAll resolves every argument, returning a new slice
func (r *Resolver) ResolveAll(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, arg := range args {
		v, err := r.Resolve(arg)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Resolve resolves a single value. Lists are resolved element by element,
// non-string scalars are returned as is.
func (r *Resolver) Resolve(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return r.resolveString(t)
	case []any:
		return r.ResolveAll(t)
	default:
		return v, nil
	}
}

func (r *Resolver) resolveString(s string) (any, error) {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") || len(s) < 3 {
		return s, nil
	}
	name := s[2 : len(s)-1]

	if strings.HasPrefix(name, randomPrefix) {
		return r.random(name[len(randomPrefix):])
	}

	if r.config != nil {
		if v := r.config.Get(strings.ToLower(name), nil); v != nil {
			return v, nil
		}
	}
	if r.strict {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedVariable, s)
	}
	log.Debug().Str("variable", s).Msg("variable not found in configuration, keeping placeholder")
	return s, nil
}

func (r *Resolver) random(expr string) (any, error) {
	tag, params, hasParams := strings.Cut(expr, ":")

	switch strings.ToUpper(tag) {
	case "STRING":
		length := 8
		if hasParams {
			n, err := strconv.Atoi(strings.TrimSpace(params))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: RANDOM_STRING length must be a non-negative integer (${RANDOM_STRING:8}), got %q",
					ErrMalformedArgument, params)
			}
			length = n
		}
		str, err := r.data.String(length)
		if err != nil {
			return nil, err
		}
		return str, nil

	case "EMAIL":
		return r.data.Email(), nil

	case "PHONE":
		return r.data.Phone(), nil

	case "INT":
		start, end := 1, 100
		if hasParams {
			m := intRange.FindStringSubmatch(strings.TrimSpace(params))
			if m == nil {
				return nil, fmt.Errorf("%w: RANDOM_INT range must be start-end (${RANDOM_INT:1-100}), got %q",
					ErrMalformedArgument, params)
			}
			var errStart, errEnd error
			start, errStart = strconv.Atoi(m[1])
			end, errEnd = strconv.Atoi(m[2])
			if errStart != nil || errEnd != nil {
				return nil, fmt.Errorf("%w: RANDOM_INT range must be start-end of integers (${RANDOM_INT:1-100}), got %q",
					ErrMalformedArgument, params)
			}
		}
		n, err := r.data.Int(start, end)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedArgument, err)
		}
		return n, nil

	case "NAME":
		return r.data.Name(), nil

	default:
		return nil, fmt.Errorf("%w: RANDOM_%s, supported: STRING, EMAIL, PHONE, INT, NAME", ErrUnknownDataType, tag)
	}
}
