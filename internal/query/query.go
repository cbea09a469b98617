package query

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"ex-wechaty/pkg/puppet"
)

// FieldSet maps filter field names to accessors on payload type P.
type FieldSet[P any] map[string]func(P) string

// Matcher reports whether one payload satisfies a compiled filter.
type Matcher[P any] func(P) bool

// LoadFunc hydrates one id into its payload, usually through a cache.
type LoadFunc[P any] func(ctx context.Context, id string) (P, error)

type compiledCondition[P any] struct {
	accessor func(P) string
	value    string
	pattern  *regexp.Regexp
}

func (c compiledCondition[P]) matches(payload P) bool {
	field := c.accessor(payload)
	if c.pattern != nil {
		return c.pattern.MatchString(field)
	}

	return field == c.value
}

// Compile turns a declarative filter into a matcher over P.
//
// Conditions are combined with AND. Patterns are compiled once here. An empty
// filter matches every payload.
func Compile[P any](filter puppet.Filter, fields FieldSet[P]) (Matcher[P], error) {
	conditions := make([]compiledCondition[P], 0, len(filter.Conditions))
	for index, condition := range filter.Conditions {
		accessor, known := fields[condition.Field]
		if !known {
			return nil, fmt.Errorf(
				"compile filter condition %d: %w: unknown field %q",
				index,
				puppet.ErrInvalidFilter,
				condition.Field,
			)
		}

		compiled := compiledCondition[P]{accessor: accessor, value: condition.Value}
		switch condition.Op {
		case puppet.FilterOpEqual, "":
		case puppet.FilterOpRegex:
			pattern, err := regexp.Compile(condition.Value)
			if err != nil {
				return nil, fmt.Errorf(
					"compile filter condition %d field %s: %w: %v",
					index,
					condition.Field,
					puppet.ErrInvalidFilter,
					err,
				)
			}
			compiled.pattern = pattern
		default:
			return nil, fmt.Errorf(
				"compile filter condition %d: %w: unknown op %q",
				index,
				puppet.ErrInvalidFilter,
				condition.Op,
			)
		}
		conditions = append(conditions, compiled)
	}

	return func(payload P) bool {
		for _, condition := range conditions {
			if !condition.matches(payload) {
				return false
			}
		}

		return true
	}, nil
}

// Search hydrates every id in the universe and returns the ids whose payload matches.
//
// Ids that fail to hydrate are logged and skipped. Results keep universe order.
// Only context cancellation aborts the scan.
func Search[P any](
	ctx context.Context,
	universe []string,
	match Matcher[P],
	load LoadFunc[P],
	logger *slog.Logger,
) ([]string, error) {
	if match == nil || load == nil {
		return nil, fmt.Errorf("search: nil matcher or loader")
	}
	if logger == nil {
		logger = slog.Default()
	}

	matched := make([]string, 0)
	for _, id := range universe {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}

		payload, err := load(ctx, id)
		if err != nil {
			logger.WarnContext(ctx, "search skipped id", "id", id, "error", err)
			continue
		}
		if match(payload) {
			matched = append(matched, id)
		}
	}

	return matched, nil
}

// Union merges id lists, dropping duplicates while keeping first-seen order.
func Union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0)
	for _, list := range lists {
		for _, id := range list {
			if _, exists := seen[id]; exists {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}

	return merged
}
