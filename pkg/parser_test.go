package pkg

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func parseDoc(t *testing.T, doc string) Object {
	t.Helper()
	root, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", doc, err)
	}
	return root
}

func parseError(t *testing.T, doc string) (error, string) {
	t.Helper()
	var sunk string
	root, err := Parse(strings.NewReader(doc), WithErrorFunc(func(format string, args ...any) {
		if sunk == "" {
			sunk = fmt.Sprintf(format, args...)
		}
	}))
	if err == nil {
		t.Fatalf("Parse(%q) succeeded, want error", doc)
	}
	if root != nil {
		t.Fatalf("Parse(%q) returned a root alongside an error", doc)
	}
	if sunk == "" {
		t.Fatalf("Parse(%q) failed without invoking the error sink", doc)
	}
	return err, sunk
}

func TestParseDictWithInteger(t *testing.T) {
	root := parseDoc(t, `<plist><dict><key>n</key><integer>42</integer></dict></plist>`)
	dict, ok := root.(*Dictionary)
	if !ok {
		t.Fatalf("root is %T, want *Dictionary", root)
	}
	value, ok := dict.Get("n")
	if !ok {
		t.Fatal("key 'n' missing")
	}
	if got := value.(*Integer).Value(); got != 42 {
		t.Errorf("n = %d, want 42", got)
	}
}

func TestParseArrayOfScalars(t *testing.T) {
	root := parseDoc(t, `<plist><array><true/><false/><null/></array></plist>`)
	arr, ok := root.(*Array)
	if !ok {
		t.Fatalf("root is %T, want *Array", root)
	}
	if arr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", arr.Len())
	}
	if !arr.At(0).(*Boolean).Value() {
		t.Error("element 0 is not true")
	}
	if arr.At(1).(*Boolean).Value() {
		t.Error("element 1 is not false")
	}
	if arr.At(2).Kind() != KindNull {
		t.Errorf("element 2 kind = %s, want null", arr.At(2).Kind())
	}
}

func TestParseNestedContainers(t *testing.T) {
	root := parseDoc(t, `<plist><dict><key>xs</key><array><string>a</string><string>b</string></array></dict></plist>`)
	dict := root.(*Dictionary)
	value, _ := dict.Get("xs")
	arr := value.(*Array)
	if arr.Len() != 2 {
		t.Fatalf("xs length = %d, want 2", arr.Len())
	}
	if arr.At(0).(*String).Value() != "a" || arr.At(1).(*String).Value() != "b" {
		t.Errorf("xs = [%q %q], want [a b]", arr.At(0).(*String).Value(), arr.At(1).(*String).Value())
	}
}

func TestParseNumericLeafTrimming(t *testing.T) {
	root := parseDoc(t, "<plist><integer>  7 </integer></plist>")
	if got := root.(*Integer).Value(); got != 7 {
		t.Errorf("root = %d, want 7", got)
	}

	root = parseDoc(t, "<plist><real>\n 2.5 \n</real></plist>")
	if got := root.(*Real).Value(); got != 2.5 {
		t.Errorf("root = %v, want 2.5", got)
	}
}

func TestParseData(t *testing.T) {
	root := parseDoc(t, `<plist><data>SGVsbG8=</data></plist>`)
	if got := string(root.(*Data).Bytes()); got != "Hello" {
		t.Errorf("data = %q, want 'Hello'", got)
	}
}

func TestParseDate(t *testing.T) {
	root := parseDoc(t, `<plist><date>2022-01-09T14:30:00Z</date></plist>`)
	want := time.Date(2022, 1, 9, 14, 30, 0, 0, time.UTC)
	if !root.(*Date).Value().Equal(want) {
		t.Errorf("date = %v, want %v", root.(*Date).Value(), want)
	}
}

func TestParseDuplicateKeyLastWriterWins(t *testing.T) {
	before := liveObjects.Load()
	root := parseDoc(t, `<plist><dict><key>k</key><integer>1</integer><key>k</key><integer>2</integer></dict></plist>`)
	value, _ := root.(*Dictionary).Get("k")
	if got := value.(*Integer).Value(); got != 2 {
		t.Errorf("k = %d, want 2 (last writer wins)", got)
	}
	root.release()
	if after := liveObjects.Load(); after != before {
		t.Errorf("live objects after release = %d, want %d (first binding leaked)", after, before)
	}
}

func TestParseWhitespaceTolerance(t *testing.T) {
	compact := parseDoc(t, `<plist><dict><key>n</key><integer>42</integer></dict></plist>`)
	spaced := parseDoc(t, "<plist>\n\t<dict>\n\t\t<key>n</key>\n\t\t<integer>42</integer>\n\t</dict>\n</plist>\n")
	if !Equal(compact, spaced) {
		t.Error("whitespace between structural elements changed the tree")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"wrong root", `<data>SGVsbG8=</data>`, "expected plist root element"},
		{"second top-level child", `<plist><string>a</string><string>b</string></plist>`, "after root element"},
		{"second child after container root", `<plist><array/><string>x</string></plist>`, "after root element"},
		{"value where key expected", `<plist><dict><integer>1</integer></dict></plist>`, "expected key, got 'integer'"},
		{"key outside dict", `<plist><key>k</key></plist>`, "unexpected element 'key'"},
		{"key where value expected", `<plist><dict><key>a</key><key>b</key></dict></plist>`, "expected value for key 'a'"},
		{"unterminated key at dict close", `<plist><dict><key>k</key></dict></plist>`, "missing value for key 'k'"},
		{"element inside key", `<plist><dict><key><string>x</string></key></dict></plist>`, "inside key"},
		{"unknown element", `<plist><widget>1</widget></plist>`, "unexpected element 'widget'"},
		{"element inside leaf", `<plist><string><integer>1</integer></string></plist>`, "inside string"},
		{"text inside array", `<plist><array>stray</array></plist>`, "unexpected character data"},
		{"text inside boolean", `<plist><true>x</true></plist>`, "unexpected character data"},
		{"malformed integer", `<plist><integer>4x2</integer></plist>`, "invalid integer"},
		{"integer overflow", `<plist><integer>92233720368547758080</integer></plist>`, "invalid integer"},
		{"empty integer", `<plist><integer></integer></plist>`, "invalid integer"},
		{"malformed real", `<plist><real>1.2.3</real></plist>`, "invalid real"},
		{"malformed base64", `<plist><data>%%%</data></plist>`, "invalid base64"},
		{"malformed date", `<plist><date>yesterday-ish</date></plist>`, "invalid date"},
		{"empty document", `<plist></plist>`, "no root object"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := liveObjects.Load()
			err, sunk := parseError(t, tc.doc)
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want substring %q", err, tc.want)
			}
			if !strings.Contains(sunk, tc.want) {
				t.Errorf("sink message = %q, want substring %q", sunk, tc.want)
			}
			if after := liveObjects.Load(); after != before {
				t.Errorf("failed parse leaked %d objects", after-before)
			}
		})
	}
}

func TestParseCleanupOnDeepFailure(t *testing.T) {
	// Fail after several containers and leaves are already built.
	doc := `<plist><dict><key>a</key><array><dict><key>b</key><string>ok</string></dict><integer>bad</integer></array></dict></plist>`
	before := liveObjects.Load()
	parseError(t, doc)
	if after := liveObjects.Load(); after != before {
		t.Errorf("failed parse leaked %d objects", after-before)
	}
}

func TestParserIsSingleShot(t *testing.T) {
	var sunk bool
	p := NewParser(WithErrorFunc(func(string, ...any) { sunk = true }))
	root, err := p.Parse(strings.NewReader(`<plist><string>once</string></plist>`))
	if err != nil {
		t.Fatalf("first parse error: %v", err)
	}

	again, err := p.Parse(strings.NewReader(`<plist><string>twice</string></plist>`))
	if err != ErrParserUsed {
		t.Errorf("second parse error = %v, want ErrParserUsed", err)
	}
	if again != nil {
		t.Error("second parse returned a root")
	}
	if sunk {
		t.Error("re-use refusal invoked the error sink")
	}
	if root.(*String).Value() != "once" {
		t.Error("second parse mutated the first root")
	}
}

func TestParseFromFile(t *testing.T) {
	path := t.TempDir() + "/sample.plist"
	writeTestFile(t, path, `<plist version="1.0"><dict><key>name</key><string>demo</string></dict></plist>`)

	root, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	value, _ := root.(*Dictionary).Get("name")
	if value.(*String).Value() != "demo" {
		t.Errorf("name = %q, want 'demo'", value.(*String).Value())
	}

	if _, err := ParseFile(t.TempDir() + "/missing.plist"); err == nil {
		t.Error("ParseFile succeeded on a missing file")
	}
}

func TestParseDeclaredCharset(t *testing.T) {
	// "café" in Latin-1: the é is a single 0xE9 byte.
	latin1 := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><plist><string>caf\xe9</string></plist>"
	root := parseDoc(t, latin1)
	if got := root.(*String).Value(); got != "café" {
		t.Errorf("string = %q, want 'café'", got)
	}

	_, err := Parse(strings.NewReader(latin1), WithoutCharsetConversion())
	if err == nil {
		t.Error("charset conversion disabled but Latin-1 document was accepted")
	}
}

func TestParseVersionAttributeIgnored(t *testing.T) {
	root := parseDoc(t, `<plist version="1.0"><integer>1</integer></plist>`)
	if root.(*Integer).Value() != 1 {
		t.Error("versioned plist did not decode")
	}
}
