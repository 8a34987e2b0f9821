package packages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afbjorklund/bazel/events"
	"github.com/afbjorklund/bazel/label"
)

func testPackage(t *testing.T) *Package {
	t.Helper()
	pkg, err := NewPackage(label.NewPackageIdentifier("foo"), "workspace",
		&Target{Label: label.MustParse("//foo:lib"), RuleClass: "go_library"},
		&Target{Label: label.MustParse("//foo:lib_test"), RuleClass: "go_test", Size: "small", Tags: []string{"smoke"}},
	)
	require.NoError(t, err)
	return pkg
}

func TestPackageTargetLookup(t *testing.T) {
	pkg := testPackage(t)

	target, err := pkg.Target("lib")
	require.NoError(t, err)
	assert.Equal(t, "go_library", target.RuleClass)

	_, err = pkg.Target("missing")
	assert.ErrorIs(t, err, ErrNoSuchTarget)
}

func TestPackageRejectsForeignAndDuplicateTargets(t *testing.T) {
	id := label.NewPackageIdentifier("foo")

	_, err := NewPackage(id, "workspace",
		&Target{Label: label.MustParse("//bar:lib")},
	)
	require.Error(t, err)

	_, err = NewPackage(id, "workspace",
		&Target{Label: label.MustParse("//foo:lib")},
		&Target{Label: label.MustParse("//foo:lib")},
	)
	assert.ErrorIs(t, err, ErrDuplicateTarget)
}

func TestPackageTargetsSorted(t *testing.T) {
	pkg := testPackage(t)
	targets := pkg.Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, "lib", targets[0].Label.Name())
	assert.Equal(t, "lib_test", targets[1].Label.Name())
}

func TestTargetPredicates(t *testing.T) {
	test := &Target{Label: label.MustParse("//foo:t"), RuleClass: "go_test", Tags: []string{"manual"}}
	lib := &Target{Label: label.MustParse("//foo:l"), RuleClass: "go_library"}

	assert.True(t, test.IsTestRule())
	assert.False(t, lib.IsTestRule())
	assert.True(t, test.HasTag("manual"))
	assert.False(t, test.HasTag("smoke"))
	assert.Equal(t, "go", test.Language())
	assert.Equal(t, "go", lib.Language())
	assert.Equal(t, "sh", (&Target{RuleClass: "sh_binary"}).Language())
}

func TestInMemoryProvider(t *testing.T) {
	ctx := context.Background()
	pkg := testPackage(t)
	provider := NewInMemoryProvider(pkg)

	got, err := provider.GetPackage(ctx, events.Discard, pkg.Identifier())
	require.NoError(t, err)
	assert.Same(t, pkg, got)
	assert.Equal(t, "workspace", got.WorkspaceName())

	_, err = provider.GetPackage(ctx, events.Discard, label.NewPackageIdentifier("missing"))
	assert.ErrorIs(t, err, ErrNoSuchPackage)
}

func TestInMemoryProviderReportsMisses(t *testing.T) {
	var seen []events.Event
	handler := events.HandlerFunc(func(_ context.Context, ev events.Event) {
		seen = append(seen, ev)
	})

	provider := NewInMemoryProvider()
	_, err := provider.GetPackage(context.Background(), handler, label.NewPackageIdentifier("missing"))
	require.Error(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "package not found", seen[0].Message)
}

func TestInMemoryProviderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := NewInMemoryProvider(testPackage(t))
	_, err := provider.GetPackage(ctx, events.Discard, label.NewPackageIdentifier("foo"))
	assert.ErrorIs(t, err, context.Canceled)
}
