package xmlparser

import "testing"

func toolSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func TestParseSimpleToolCall(t *testing.T) {
	call, ok := Parse("<get_weather><location>SF</location></get_weather>", toolSet("get_weather"))
	if !ok {
		t.Fatal("expected a tool call to be found")
	}
	if call.Name != "get_weather" {
		t.Fatalf("expected name get_weather, got %s", call.Name)
	}
	if call.Arguments["location"] != "SF" {
		t.Fatalf("expected location=SF, got %v", call.Arguments)
	}
}

func TestParseWrappedToolCall(t *testing.T) {
	input := WrapperOpen + "<get_weather><location>SF</location></get_weather>" + WrapperClose
	call, ok := Parse(input, toolSet("get_weather"))
	if !ok || call.Name != "get_weather" {
		t.Fatalf("expected a tool call named get_weather, got %+v ok=%v", call, ok)
	}
}

func TestParseNestedRepeatedItemsCollapseToRawList(t *testing.T) {
	input := "<search><tags><item>go</item><item>proxy</item></tags></search>"
	call, ok := Parse(input, toolSet("search"))
	if !ok {
		t.Fatal("expected a tool call to be found")
	}
	tags, ok := call.Arguments["tags"].([]interface{})
	if !ok {
		t.Fatalf("expected tags to be a raw list, got %T: %v", call.Arguments["tags"], call.Arguments["tags"])
	}
	if len(tags) != 2 || tags[0] != "go" || tags[1] != "proxy" {
		t.Fatalf("expected [go proxy], got %v", tags)
	}
}

func TestParseNoMatchingTool(t *testing.T) {
	_, ok := Parse("<unrelated>text</unrelated>", toolSet("get_weather"))
	if ok {
		t.Fatal("expected no tool call for unrelated element")
	}
}

func TestParseLeadingProseIsSkipped(t *testing.T) {
	call, ok := Parse("Sure, let me check. <get_weather><location>Paris</location></get_weather>", toolSet("get_weather"))
	if !ok || call.Arguments["location"] != "Paris" {
		t.Fatalf("expected location=Paris, got %+v ok=%v", call, ok)
	}
}

func TestParseTypeCoercion(t *testing.T) {
	call, ok := Parse("<calc><n>42</n><ok>true</ok><label>not-a-number</label></calc>", toolSet("calc"))
	if !ok {
		t.Fatal("expected a tool call")
	}
	if call.Arguments["n"] != float64(42) {
		t.Fatalf("expected n=42 (float64), got %#v", call.Arguments["n"])
	}
	if call.Arguments["ok"] != true {
		t.Fatalf("expected ok=true, got %#v", call.Arguments["ok"])
	}
	if call.Arguments["label"] != "not-a-number" {
		t.Fatalf("expected label to stay a string, got %#v", call.Arguments["label"])
	}
}

func TestParseRepeatedChildrenAggregate(t *testing.T) {
	call, ok := Parse("<search><query>a</query><query>b</query></search>", toolSet("search"))
	if !ok {
		t.Fatal("expected a tool call")
	}
	list, isList := call.Arguments["query"].([]interface{})
	if !isList || len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Fatalf("expected aggregated [a b], got %#v", call.Arguments["query"])
	}
}

func TestParseNestedElementsRecurse(t *testing.T) {
	call, ok := Parse("<book><author><first>Ada</first><last>Lovelace</last></author></book>", toolSet("book"))
	if !ok {
		t.Fatal("expected a tool call")
	}
	author, isMap := call.Arguments["author"].(map[string]interface{})
	if !isMap || author["first"] != "Ada" || author["last"] != "Lovelace" {
		t.Fatalf("expected nested author map, got %#v", call.Arguments["author"])
	}
}

func TestParseAdversarialInjectionText(t *testing.T) {
	call, ok := Parse(`<search><query>'; DROP TABLE users; --</query></search>`, toolSet("search"))
	if !ok {
		t.Fatal("expected a tool call")
	}
	if call.Arguments["query"] != "'; DROP TABLE users; --" {
		t.Fatalf("expected literal query text preserved, got %#v", call.Arguments["query"])
	}
}

func TestParseEntityDecoding(t *testing.T) {
	call, ok := Parse("<note><text>Tom &amp; Jerry &lt;ran&gt;</text></note>", toolSet("note"))
	if !ok {
		t.Fatal("expected a tool call")
	}
	if call.Arguments["text"] != "Tom & Jerry <ran>" {
		t.Fatalf("expected decoded entities, got %#v", call.Arguments["text"])
	}
}

func TestParseVerbatimChildPreservesMarkup(t *testing.T) {
	call, ok := Parse("<render><html>&lt;b&gt;bold&lt;/b&gt;</html></render>", toolSet("render"))
	if !ok {
		t.Fatal("expected a tool call")
	}
	if call.Arguments["html"] != "&lt;b&gt;bold&lt;/b&gt;" {
		t.Fatalf("expected html child to stay undecoded, got %#v", call.Arguments["html"])
	}
}

func TestParseUnbalancedXMLRecovers(t *testing.T) {
	call, ok := Parse("<get_weather><location>Paris</location></get_weather", toolSet("get_weather"))
	if !ok {
		t.Fatal("expected recovery from a missing final '>'")
	}
	if call.Name != "get_weather" {
		t.Fatalf("expected get_weather, got %s", call.Name)
	}
}

func TestParseCDATASkipped(t *testing.T) {
	call, ok := Parse("<note><text><![CDATA[<raw/>]]></text></note>", toolSet("note"))
	if !ok {
		t.Fatal("expected a tool call")
	}
	if call.Arguments["text"] != "<raw/>" {
		t.Fatalf("expected CDATA contents preserved verbatim, got %#v", call.Arguments["text"])
	}
}

func TestTruncateTailBoundsBuffer(t *testing.T) {
	big := make([]byte, MaxBufferSize+500)
	for i := range big {
		big[i] = 'a'
	}
	big[len(big)-1] = 'z'
	out := TruncateTail(string(big))
	if len(out) != MaxBufferSize {
		t.Fatalf("expected truncated length %d, got %d", MaxBufferSize, len(out))
	}
	if out[len(out)-1] != 'z' {
		t.Fatal("expected tail to be preserved, not the head")
	}
}
