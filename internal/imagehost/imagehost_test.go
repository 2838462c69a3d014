package imagehost

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	a := ObjectKey("captures", "image/png")
	b := ObjectKey("captures", "image/png")

	assert.True(t, strings.HasPrefix(a, "captures/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)
}

func TestExtRoundTrip(t *testing.T) {
	for _, mt := range []string{"image/jpeg", "image/png", "image/gif", "image/webp"} {
		assert.Equal(t, mt, MIMEForExt("x"+ExtForMIME(mt)), mt)
	}
	assert.Equal(t, ".jpg", ExtForMIME("application/pdf"))
	assert.Equal(t, "image/png", MIMEForExt("A.PNG"))
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/jpeg;base64,AAAA", DataURL("image/jpeg", "AAAA"))
}
