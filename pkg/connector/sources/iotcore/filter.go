package iotcore

import (
	"strings"

	"github.com/ajitpratap0/iotcore/pkg/connector/core"
)

const (
	likeWildcard = "%"
	// single-character wildcard and escape character
	likeLiteralBreakers = "_\\"
)

// ExtractFilter picks the single predicate value the list API for kind can
// apply server-side. For thing and thing-type it is an exact thing type name;
// for thing-group it is a group name prefix. Quals that cannot be pushed down
// are ignored and left for the host to evaluate. When several quals match, the
// last one wins.
func ExtractFilter(kind core.Kind, quals []core.Qual) (string, bool) {
	var value string
	var found bool

	for _, q := range quals {
		field := strings.ToLower(q.Field)

		switch kind {
		case core.KindThing, core.KindThingType:
			if field == "thing_type_name" && q.Operator == core.OperatorEqual {
				value, found = q.Value, true
			}
		case core.KindThingGroup:
			if field != "thing_group_name" {
				continue
			}
			switch q.Operator {
			case core.OperatorEqual:
				value, found = q.Value, true
			case core.OperatorLike:
				if prefix, ok := likePrefix(q.Value); ok {
					value, found = prefix, true
				}
			}
		}
	}

	// An empty value filters nothing
	if value == "" {
		return "", false
	}
	return value, found
}

// likePrefix returns the prefix of a pattern of the form "abc%". The prefix
// must be literal: "_" wildcards and backslash escapes are not pushed down.
func likePrefix(pattern string) (string, bool) {
	if strings.Count(pattern, likeWildcard) != 1 || !strings.HasSuffix(pattern, likeWildcard) {
		return "", false
	}
	prefix := strings.TrimSuffix(pattern, likeWildcard)
	if strings.ContainsAny(prefix, likeLiteralBreakers) {
		return "", false
	}
	return prefix, true
}
