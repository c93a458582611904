package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pathsOf computes the structural path of every element below body.
func pathsOf(body *RawNode) map[*RawNode]string {
	out := make(map[*RawNode]string)
	var walk func(pn *rawPathNode)
	walk = func(pn *rawPathNode) {
		out[pn.raw] = structuralPath(pn)
		elems := childPathNodes(pn, pn.raw.Children)
		for _, c := range pn.raw.Children {
			if e, ok := elems[c]; ok {
				walk(e)
			}
		}
	}
	walk(documentRoot(body))
	return out
}

// TestStructuralPath_Ordinals verifies ordinals appear only for repeated tags.
func TestStructuralPath_Ordinals(t *testing.T) {
	span := &RawNode{Tag: "span"}
	a1 := &RawNode{Tag: "a"}
	a2 := &RawNode{Tag: "a"}
	p := &RawNode{Tag: "p"}
	body := &RawNode{Tag: "body", Children: []*RawNode{
		{Tag: "div", Children: []*RawNode{span}},
		{Text: true, Value: "between"},
		{Tag: "div", Children: []*RawNode{a1, {Text: true, Value: "x"}, a2, p}},
	}}

	paths := pathsOf(body)
	assert.Equal(t, "/html/body", paths[body])
	assert.Equal(t, "/html/body/div[1]/span", paths[span])
	assert.Equal(t, "/html/body/div[2]/a[1]", paths[a1])
	assert.Equal(t, "/html/body/div[2]/a[2]", paths[a2])
	assert.Equal(t, "/html/body/div[2]/p", paths[p])
}

// TestStructuralPath_IDAnchor verifies an id on an ancestor anchors the path.
func TestStructuralPath_IDAnchor(t *testing.T) {
	button := &RawNode{Tag: "button"}
	quoted := &RawNode{Tag: "input", Attrs: []Attribute{{Name: "id", Value: `say "hi"`}}}
	both := &RawNode{Tag: "i", Attrs: []Attribute{{Name: "id", Value: `a"b'c`}}}
	main := &RawNode{Tag: "div", Attrs: []Attribute{{Name: "id", Value: "main"}}, Children: []*RawNode{
		{Tag: "p", Children: []*RawNode{button}},
		quoted,
		both,
	}}
	body := &RawNode{Tag: "body", Children: []*RawNode{main}}

	paths := pathsOf(body)
	assert.Equal(t, `//*[@id="main"]`, paths[main])
	assert.Equal(t, `//*[@id="main"]/p/button`, paths[button])
	assert.Equal(t, `//*[@id='say "hi"']`, paths[quoted])
	assert.Equal(t, `//*[@id="main"]/i`, paths[both], "an id with both quote kinds cannot anchor")
}

// TestStructuralPath_PaddedID verifies ids keep their surrounding
// whitespace and blank ids do not anchor.
func TestStructuralPath_PaddedID(t *testing.T) {
	padded := &RawNode{Tag: "a", Attrs: []Attribute{{Name: "id", Value: " spaced "}}}
	blank := &RawNode{Tag: "b", Attrs: []Attribute{{Name: "id", Value: "  "}}}
	body := &RawNode{Tag: "body", Children: []*RawNode{padded, blank}}

	paths := pathsOf(body)
	assert.Equal(t, `//*[@id=" spaced "]`, paths[padded])
	assert.Equal(t, "/html/body/b", paths[blank])
	assert.Equal(t, `[id=" spaced "]`, CSSFromPath(paths[padded]))
}

// TestStructuralPath_ShadowSiblings verifies shadow and light children are
// counted separately.
func TestStructuralPath_ShadowSiblings(t *testing.T) {
	inner1 := &RawNode{Tag: "span", InShadowRoot: true}
	inner2 := &RawNode{Tag: "span", InShadowRoot: true}
	light := &RawNode{Tag: "span"}
	host := &RawNode{Tag: "my-card", ShadowRoot: true, Children: []*RawNode{inner1, inner2, light}}
	body := &RawNode{Tag: "body", Children: []*RawNode{host}}

	paths := pathsOf(body)
	assert.Equal(t, "/html/body/my-card/span[1]", paths[inner1])
	assert.Equal(t, "/html/body/my-card/span[2]", paths[inner2])
	assert.Equal(t, "/html/body/my-card/span", paths[light])
}

// TestCSSFromPath covers the path to selector conversion.
func TestCSSFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/html/body/div[2]/a", "html > body > div:nth-of-type(2) > a"},
		{"/html/body", "html > body"},
		{`//*[@id="main"]/p/button`, `[id="main"] > p > button`},
		{`//*[@id='say "hi"']`, `[id="say \"hi\""]`},
		{"//*[@id=\"x\ny\"]/p", `[id="x\a y"] > p`},
		{"/html/body/ul/li[last()]", "html > body > ul > li:last-of-type"},
		{"/html/body/div[@class='x']", "html > body > div"},
		{"", ""},
		{"/html//body", ""},
		{"/html/body/div[", ""},
		{"/html/9bad", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, CSSFromPath(tt.path))
		})
	}
}

// TestDocumentRoot verifies a body is parented by a synthetic html element.
func TestDocumentRoot(t *testing.T) {
	body := documentRoot(&RawNode{Tag: "body"})
	require.NotNil(t, body.parent)
	assert.Equal(t, "html", body.parent.pathTag())
	assert.Nil(t, body.parent.pathParent())
}
