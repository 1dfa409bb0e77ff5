package telemetry

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	LabelController = "controller"
	LabelRoute      = "route"
	LabelMethod     = "method"
	LabelUserRole   = "user_role"
	LabelOperation  = "operation"
)

// Storefront operations worth slicing profiles by.
const (
	OperationCheckout      = "checkout"
	OperationRenderInvoice = "render_invoice"
	OperationCartMerge     = "cart_merge"
	OperationMaintenance   = "maintenance"
)

// maxLabelValue caps label values.
const maxLabelValue = 128

// perEntity keys would explode pyroscope's series count, so they are dropped.
var perEntity = []string{"user_id", "request_id", "order_id", "product_id", "session_id", "trace_id", "span_id"}

// Labels are pyroscope tags for a unit of work. Empty values are ignored.
type Labels map[string]string

// Operation labels a named application operation.
func Operation(name string) Labels {
	return Labels{LabelOperation: name}
}

// Request labels an API request.
func Request(controller, route, method, role string) Labels {
	return Labels{
		LabelController: controller,
		LabelRoute:      route,
		LabelMethod:     method,
		LabelUserRole:   role,
	}
}

// With returns a copy of l with one more label.
func (l Labels) With(key, value string) Labels {
	out := maps.Clone(l)
	if out == nil {
		out = Labels{}
	}
	out[key] = value
	return out
}

// Do runs fn with the labels attached to ctx. The labels are read before fn
// starts.
func (l Labels) Do(ctx context.Context, fn func(context.Context)) {
	pairs := l.pairs()
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// pairs flattens l into key/value pairs ordered by key, with snake_case keys
// and truncated values.
func (l Labels) pairs() []string {
	var pairs []string
	for _, raw := range slices.Sorted(maps.Keys(l)) {
		value := l[raw]
		key := labelKey(raw)
		if value == "" || key == "" || slices.Contains(perEntity, key) {
			continue
		}
		if len(value) > maxLabelValue {
			value = value[:maxLabelValue]
		}
		pairs = append(pairs, key, value)
	}
	return pairs
}

func labelKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '-':
			return '_'
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return -1
	}, strings.ToLower(key))
}
