package clipboard

import "testing"

func TestStatic(t *testing.T) {
	text, err := Static("https://youtu.be/abc").ReadText()
	if err != nil || text != "https://youtu.be/abc" {
		t.Errorf("ReadText() = %q, %v", text, err)
	}
}
