package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefBufferReleaseDrivesRefcountToZero(t *testing.T) {
	rb := acquireBuffer()
	assert.True(t, rb.tryRelease())
}

func TestRefBufferSecondReleaseIsNoop(t *testing.T) {
	rb := acquireBuffer()
	assert.True(t, rb.tryRelease())
	assert.False(t, rb.tryRelease(), "a second release must not crash or re-free the slice")
}

func TestRefBufferRetainRequiresMatchingReleases(t *testing.T) {
	rb := acquireBuffer()
	rb.retain()
	assert.False(t, rb.tryRelease(), "refcount is 2 after retain; one release must not free it")
	assert.True(t, rb.tryRelease(), "the second release drops the refcount to zero")
	assert.False(t, rb.tryRelease(), "a third release is a no-op")
}
