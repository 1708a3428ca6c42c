package tmpl2pdf

import (
	"regexp"
	"strconv"
	"strings"
)

// ParamTree maps placeholder names discovered in a template to their
// structure. Values are one of:
//   - string: an unresolved scalar marker, e.g. "{{title}}"
//   - ParamTree: a nested object for dotted placeholders
//   - []ParamTree: a one-element slice for repeated-row bindings, whose
//     element records the fields referenced on the loop variable
type ParamTree map[string]any

// placeholderPattern recognizes, in priority order per match:
// a repeated-row binding, a directive-attribute reference, a dotted
// placeholder, a function-call placeholder (first argument only), and a
// simple placeholder. Extraction is a best-effort scan, not a full
// parse: templates are author-controlled, and discovering the parameter
// shape is all that is needed.
var placeholderPattern = regexp.MustCompile(
	`v-for="\(?([\w$]+)[^"]*?\s(?:in|of)\s+([\w$.]+)\s*"` + // 1: loop var, 2: collection
		`|(?:v-text|v-show|v-if|v-model|:[\w-]+)="\s*([\w$]+)\s*"` + // 3: directive attribute
		`|\{\{\s*([\w$]+(?:\.[\w$]+)+)\s*\}\}` + // 4: dotted path
		`|\{\{\s*[\w$.]+\(\s*([\w$]+)[^}]*?\)\s*\}\}` + // 5: first call argument
		`|\{\{\s*([\w$]+)\s*\}\}`) // 6: simple placeholder

// extractParameters scans template text and returns the tree of
// placeholder names the template expects. It never fails: malformed
// templates simply contribute no matches. Calling it twice on identical
// input yields structurally equal trees.
func extractParameters(text string) ParamTree {
	tree := ParamTree{}

	// Loop-variable names are collected during the scan and removed in a
	// final filter pass, so a loop variable that also matches as a simple
	// placeholder inside the loop body never leaks into the result.
	discard := map[string]struct{}{}

	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		switch {
		case m[2] != "":
			mergeLoopFields(tree, m[2], loopFields(m[1], text))
			discard[m[1]] = struct{}{}
		case m[3] != "":
			insertScalar(tree, m[3])
		case m[4] != "":
			insertDottedPath(tree, strings.Split(m[4], "."))
		case m[5] != "":
			insertScalar(tree, m[5])
		case m[6] != "":
			insertScalar(tree, m[6])
		}
	}

	for name := range discard {
		delete(tree, name)
	}
	return tree
}

// loopFields re-scans the template for itemVar.field references and
// records each field as a scalar marker. No boundary anchor: loop
// variables may start with $, which has no word boundary before it.
func loopFields(itemVar, text string) ParamTree {
	fieldPattern := regexp.MustCompile(regexp.QuoteMeta(itemVar) + `\.([\w$]+)`)
	fields := ParamTree{}
	for _, m := range fieldPattern.FindAllStringSubmatch(text, -1) {
		fields[m[1]] = placeholderMarker(m[1])
	}
	return fields
}

// mergeLoopFields attaches fields to the collection's row template,
// unioning with any fields discovered by an earlier binding over the
// same collection.
func mergeLoopFields(tree ParamTree, collection string, fields ParamTree) {
	if rows, ok := tree[collection].([]ParamTree); ok && len(rows) == 1 {
		for k, v := range fields {
			rows[0][k] = v
		}
		return
	}
	tree[collection] = []ParamTree{fields}
}

// insertDottedPath records a dotted placeholder. A two-segment path maps
// the leaf to its scalar marker; deeper paths build nested empty objects
// with an empty object at the leaf.
func insertDottedPath(tree ParamTree, segments []string) {
	node := ensureChildTree(tree, segments[0])
	if len(segments) == 2 {
		node[segments[1]] = placeholderMarker(segments[1])
		return
	}
	for _, segment := range segments[1:] {
		node = ensureChildTree(node, segment)
	}
}

// insertScalar records a simple placeholder unless the name is a numeric
// literal or the key already holds richer structure.
func insertScalar(tree ParamTree, name string) {
	if isNumericLiteral(name) {
		return
	}
	if _, exists := tree[name]; exists {
		return
	}
	tree[name] = placeholderMarker(name)
}

// ensureChildTree returns the nested tree at key, creating or replacing
// the value when it is not already a tree.
func ensureChildTree(tree ParamTree, key string) ParamTree {
	if child, ok := tree[key].(ParamTree); ok {
		return child
	}
	child := ParamTree{}
	tree[key] = child
	return child
}

// placeholderMarker echoes a name in unresolved placeholder form.
// Extraction discovers names, it does not evaluate them.
func placeholderMarker(name string) string {
	return "{{" + name + "}}"
}

// isNumericLiteral reports whether s parses as a number, e.g. {{3}}.
func isNumericLiteral(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
