package detector

import "testing"

func tools(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func TestDetectPlainText(t *testing.T) {
	r := Detect("hello there, nothing special", tools("get_weather"))
	if r.MightBeToolCall {
		t.Fatalf("expected plain text to not be a potential tool call, got %+v", r)
	}
}

func TestDetectNonToolHTMLTag(t *testing.T) {
	r := Detect("<div>some markdown render</div>", tools("get_weather"))
	if r.MightBeToolCall {
		t.Fatalf("expected leading html tag to short-circuit, got %+v", r)
	}
	if r.RootTagName != "div" {
		t.Fatalf("expected root tag 'div', got %q", r.RootTagName)
	}
}

func TestDetectCompleteToolCall(t *testing.T) {
	r := Detect("<get_weather><location>SF</location></get_weather>", tools("get_weather"))
	if !r.MightBeToolCall || !r.IsCompletedXml {
		t.Fatalf("expected a completed tool call, got %+v", r)
	}
	if r.RootTagName != "get_weather" {
		t.Fatalf("expected root tag 'get_weather', got %q", r.RootTagName)
	}
}

func TestDetectOpenToolCallNotYetClosed(t *testing.T) {
	r := Detect("<get_weather><location>SF", tools("get_weather"))
	if !r.MightBeToolCall {
		t.Fatalf("expected an open tool call to be potential, got %+v", r)
	}
	if r.IsCompletedXml {
		t.Fatalf("expected not yet complete, got %+v", r)
	}
}

func TestDetectToolCallWrapperMarker(t *testing.T) {
	r := Detect("some text <toolbridge:calls", tools("get_weather"))
	if !r.MightBeToolCall {
		t.Fatalf("expected wrapper prefix to be potential, got %+v", r)
	}
}

func TestDetectPartialToolNamePrefix(t *testing.T) {
	r := Detect("OK <get_we", tools("get_weather"))
	if !r.MightBeToolCall {
		t.Fatalf("expected a known-tool prefix to be potential, got %+v", r)
	}
}

func TestDetectUnrelatedTagName(t *testing.T) {
	r := Detect("<unrelated>text</unrelated>", tools("get_weather"))
	if r.MightBeToolCall {
		t.Fatalf("expected unrelated tag to not be a potential tool call, got %+v", r)
	}
}
