package interceptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yinglunfeng/esa-httpclient/filter"
	"github.com/yinglunfeng/esa-httpclient/model"
)

func buildDefault(retryOpts *RetryOptions, exec *filter.FilteringExec) *List {
	var retry Interceptor
	if retryOpts != nil {
		retry = NewRetry(*retryOpts, nil)
	}
	return NewDefault(retry, NewRedirect(5), NewFiltering(exec), NewExpectContinue())
}

func TestDefaultChainHasFourEntriesWithRetryOptions(t *testing.T) {
	l := buildDefault(&RetryOptions{MaxRetries: 2}, filter.New())
	assert.Equal(t, 4, l.Len())

	names := make([]string, 0, 4)
	for _, i := range l.Unmodifiable() {
		names = append(names, i.Name())
	}
	assert.Equal(t, []string{"Retry", "Redirect", "Filtering", "ExpectContinue"}, names)
}

func TestDefaultChainHasThreeEntriesWithoutRetryOptions(t *testing.T) {
	l := buildDefault(nil, filter.New())
	assert.Equal(t, 3, l.Len())

	names := make([]string, 0, 3)
	for _, i := range l.Unmodifiable() {
		names = append(names, i.Name())
	}
	assert.Equal(t, []string{"Redirect", "Filtering", "ExpectContinue"}, names)
}

func TestReplaceFilteringChangesIdentityWithoutChangingLength(t *testing.T) {
	l := buildDefault(nil, filter.New())
	before := l.Unmodifiable()

	newExec := filter.New().WithRequestFilter(filter.RequestFilterFunc(func(context.Context, *model.Request) error { return nil }))
	l.ReplaceFiltering(NewFiltering(newExec))

	after := l.Unmodifiable()
	assert.Equal(t, len(before), len(after), "replacing the Filtering slot must not change chain length")

	var beforeFiltering, afterFiltering Interceptor
	for _, i := range before {
		if i.Name() == "Filtering" {
			beforeFiltering = i
		}
	}
	for _, i := range after {
		if i.Name() == "Filtering" {
			afterFiltering = i
		}
	}
	assert.NotSame(t, beforeFiltering, afterFiltering, "the Filtering slot's identity must change")
}

func TestSetRetryNilRemovesSlot(t *testing.T) {
	l := buildDefault(&RetryOptions{MaxRetries: 1}, filter.New())
	assert.Equal(t, 4, l.Len())

	l.SetRetry(nil)
	assert.Equal(t, 3, l.Len())
	for _, i := range l.Unmodifiable() {
		assert.NotEqual(t, "Retry", i.Name())
	}
}

func TestUnmodifiableSnapshotDoesNotAffectList(t *testing.T) {
	l := buildDefault(nil, filter.New())
	snap := l.Unmodifiable()
	snap[0] = nil
	assert.NotNil(t, l.Unmodifiable()[0], "mutating a returned snapshot must not affect the List")
}
