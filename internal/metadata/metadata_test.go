package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recollectlabs/recollect/internal/plugin"
	"github.com/recollectlabs/recollect/internal/session"
)

func implClass(name, category string, active bool, reqs ...string) *plugin.Class {
	return &plugin.Class{
		Name:     name,
		Category: category,
		Declare: func(d *plugin.Declaration) {
			for _, r := range reqs {
				d.Requirement(r)
			}
			d.Argument(plugin.ArgumentSpec{Name: "verbosity", Type: "int", Default: 1})
		},
		Active: func(ctx context.Context, s *session.Session) bool {
			return active
		},
		New: func(base *plugin.Base, opts plugin.Options) (plugin.Command, error) {
			return base, nil
		},
	}
}

func freshDatabase(t *testing.T, classes ...*plugin.Class) (*Database, *session.Session) {
	t.Helper()
	plugin.Reset()
	t.Cleanup(plugin.Reset)
	for _, c := range classes {
		plugin.Register(c)
	}
	s := session.New(session.Config{})
	db, err := NewDatabase(s)
	require.NoError(t, err)
	return db, s
}

func TestNewDatabaseRequiresSession(t *testing.T) {
	_, err := NewDatabase(nil)
	require.Error(t, err)
}

func TestMetadataGroupsImplementationsByName(t *testing.T) {
	db, _ := freshDatabase(t,
		implClass("foo", "windows", false, "profile"),
		implClass("foo", "linux", true, "physical_address_space"),
		implClass("bar", "misc", true),
		&plugin.Class{}, // unnamed, never listed
	)

	require.Equal(t, []string{"bar", "foo"}, db.Names())
	require.Len(t, db.MetadataByName("foo"), 2)
	require.Empty(t, db.MetadataByName("unknown"))
}

func TestGetActivePluginPicksTheOneActiveImplementation(t *testing.T) {
	db, _ := freshDatabase(t,
		implClass("foo", "windows", false),
		implClass("foo", "linux", true),
	)

	m, err := db.GetActivePlugin(context.Background(), "foo")
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "linux", m.Class().Category)
}

func TestGetActivePluginAbsentIsNotAnError(t *testing.T) {
	db, _ := freshDatabase(t, implClass("foo", "windows", false))

	m, err := db.GetActivePlugin(context.Background(), "foo")
	require.NoError(t, err)
	require.Nil(t, m)

	m, err = db.GetActivePlugin(context.Background(), "never-registered")
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestGetActivePluginAmbiguityIsFatal(t *testing.T) {
	db, _ := freshDatabase(t,
		implClass("foo", "windows", true),
		implClass("foo", "linux", true),
	)

	_, err := db.GetActivePlugin(context.Background(), "foo")
	require.Error(t, err)
	var ambiguous *AmbiguousActivationError
	require.ErrorAs(t, err, &ambiguous)
	require.Equal(t, "foo", ambiguous.Name)
	require.ElementsMatch(t, []string{"windows", "linux"}, ambiguous.Categories)
}

func TestSerializeListsOnlyActiveNames(t *testing.T) {
	db, _ := freshDatabase(t,
		implClass("foo", "windows", false, "profile"),
		implClass("foo", "linux", true, "physical_address_space"),
		implClass("bar", "misc", false),
	)

	catalog, err := db.Serialize(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 1)

	record, ok := catalog["foo"]
	require.True(t, ok)
	require.Equal(t, "linux", record.Category)
	require.Equal(t, []string{"physical_address_space"}, record.Requirements)
	require.Len(t, record.Arguments, 1)
	require.Equal(t, "verbosity", record.Arguments[0].Name)
}

func TestSerializePropagatesAmbiguity(t *testing.T) {
	db, _ := freshDatabase(t,
		implClass("foo", "windows", true),
		implClass("foo", "linux", true),
	)

	_, err := db.Serialize(context.Background())
	var ambiguous *AmbiguousActivationError
	require.ErrorAs(t, err, &ambiguous)
}

func TestRequirementsUnionsAllImplementations(t *testing.T) {
	db, _ := freshDatabase(t,
		implClass("foo", "windows", false, "profile", "physical_address_space"),
		implClass("foo", "linux", true, "profile"),
	)

	require.Equal(t,
		[]string{"physical_address_space", "profile"},
		db.Requirements("foo"))
	require.Empty(t, db.Requirements("unknown"))
}

func TestRebuildPicksUpLateRegistrations(t *testing.T) {
	db, _ := freshDatabase(t, implClass("foo", "windows", true))

	plugin.Register(implClass("late", "misc", true))
	require.NotContains(t, db.Names(), "late")

	db.Rebuild()
	require.Contains(t, db.Names(), "late")
}
