package jsonmagic

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/zoobzio/sentinel"
)

// fieldPlan maps one struct field to its mapping key.
type fieldPlan struct {
	index []int  // reflect.Value.FieldByIndex access path
	name  string // Go field name for error messages
	key   string // mapping key
}

// candidate is a field found while walking embedded structs, before name
// conflicts are resolved.
type candidate struct {
	fieldPlan
	depth  int
	tagged bool
}

// derivePlan enumerates the fields of struct type T, including fields
// promoted through embedded structs. Unexported fields and fields tagged
// `json:"-"` are skipped. The json tag name is used as the key when present;
// omitempty is ignored so that zero values survive a round trip.
//
// Promotion follows encoding/json: an embedded struct without a json name is
// flattened into its parent, the shallowest field wins a key, a tagged field
// wins among equals, and keys that stay ambiguous are dropped.
func derivePlan[T any]() []fieldPlan {
	typ := reflect.TypeFor[T]()

	var found []candidate
	visited := map[reflect.Type]bool{typ: true}
	for _, sf := range declaredFields[T]() {
		collectField(&found, sf, nil, 0, visited)
	}
	return dominantPlans(found)
}

// declaredFields lists the top-level fields of T from sentinel metadata.
// Embedded fields sentinel does not report are added from reflection so that
// their promoted fields are still reached.
func declaredFields[T any]() []reflect.StructField {
	typ := reflect.TypeFor[T]()
	spec := sentinel.Scan[T]()

	scanned := make(map[int]bool, len(spec.Fields))
	for _, field := range spec.Fields {
		if len(field.Index) > 0 {
			scanned[field.Index[0]] = true
		}
	}

	fields := make([]reflect.StructField, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if scanned[i] || sf.Anonymous {
			fields = append(fields, sf)
		}
	}
	return fields
}

func collectField(found *[]candidate, sf reflect.StructField, parent []int, depth int, visited map[reflect.Type]bool) {
	key, skip := jsonKey(sf)
	if skip {
		return
	}
	index := append(slices.Clone(parent), sf.Index...)
	tagged := tagName(sf) != ""

	if sf.Anonymous {
		t := sf.Type
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if !tagged && t.Kind() == reflect.Struct {
			if visited[t] {
				return
			}
			inner := make(map[reflect.Type]bool, len(visited)+1)
			for k := range visited {
				inner[k] = true
			}
			inner[t] = true
			for i := 0; i < t.NumField(); i++ {
				collectField(found, t.Field(i), index, depth+1, inner)
			}
			return
		}
	}
	if !sf.IsExported() {
		return
	}

	*found = append(*found, candidate{
		fieldPlan: fieldPlan{index: index, name: sf.Name, key: key},
		depth:     depth,
		tagged:    tagged,
	})
}

// dominantPlans keeps one field per key and orders the result by index path.
func dominantPlans(found []candidate) []fieldPlan {
	groups := make(map[string][]candidate)
	for _, c := range found {
		groups[c.key] = append(groups[c.key], c)
	}

	plans := make([]fieldPlan, 0, len(groups))
	for _, group := range groups {
		if winner, ok := dominant(group); ok {
			plans = append(plans, winner.fieldPlan)
		}
	}
	slices.SortFunc(plans, func(a, b fieldPlan) int {
		return slices.Compare(a.index, b.index)
	})
	return plans
}

func dominant(group []candidate) (candidate, bool) {
	minDepth := group[0].depth
	for _, c := range group[1:] {
		minDepth = min(minDepth, c.depth)
	}

	var shallow, tagged []candidate
	for _, c := range group {
		if c.depth != minDepth {
			continue
		}
		shallow = append(shallow, c)
		if c.tagged {
			tagged = append(tagged, c)
		}
	}
	switch {
	case len(shallow) == 1:
		return shallow[0], true
	case len(tagged) == 1:
		return tagged[0], true
	default:
		return candidate{}, false
	}
}

// tagName returns the name part of a field's json tag.
func tagName(sf reflect.StructField) string {
	tag, ok := sf.Tag.Lookup("json")
	if !ok || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

// jsonKey returns the mapping key for a struct field following encoding/json
// naming: `json:"-"` skips, `json:"-,"` names the key "-".
func jsonKey(sf reflect.StructField) (string, bool) {
	if tag, ok := sf.Tag.Lookup("json"); ok && tag == "-" {
		return "", true
	}
	if name := tagName(sf); name != "" {
		return name, false
	}
	return sf.Name, false
}

// derivedFields reads the planned fields off v, a struct value.
// Fields behind a nil embedded pointer are left out, as encoding/json does.
func derivedFields(v reflect.Value, plans []fieldPlan) Fields {
	out := make(Fields, len(plans))
	for _, plan := range plans {
		field, err := v.FieldByIndexErr(plan.index)
		if err != nil || !field.CanInterface() {
			continue
		}
		out[plan.key] = field.Interface()
	}
	return out
}

// fieldIndex resolves mapping keys to plans: exact key first, then
// case-insensitively.
type fieldIndex struct {
	exact  map[string]int
	folded map[string]int
}

func newFieldIndex(plans []fieldPlan) fieldIndex {
	fi := fieldIndex{
		exact:  make(map[string]int, len(plans)),
		folded: make(map[string]int, len(plans)),
	}
	for i, plan := range plans {
		fi.exact[plan.key] = i
		if _, ok := fi.folded[strings.ToLower(plan.key)]; !ok {
			fi.folded[strings.ToLower(plan.key)] = i
		}
	}
	return fi
}

func (fi fieldIndex) lookup(key string) (int, bool) {
	if i, ok := fi.exact[key]; ok {
		return i, true
	}
	i, ok := fi.folded[strings.ToLower(key)]
	return i, ok
}

// settableField walks index from v, an addressable struct, allocating nil
// embedded pointers on the way.
func settableField(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("cannot set embedded pointer to unexported struct %v", v.Type().Elem())
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	if !v.CanSet() {
		return reflect.Value{}, fmt.Errorf("field is not settable")
	}
	return v, nil
}
