package user

import (
	"context"
	"testing"

	"partnerbot/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewTestDB(t, &User{})
	return NewService(ServiceParams{DB: db})
}

func TestUpsertFirstContact(t *testing.T) {
	svc := newTestService(t)

	u, created, err := svc.Upsert(context.Background(), UpsertParams{
		ID:        100,
		Username:  "partner",
		FirstName: "Ivan",
		RefCode:   "ref_abc",
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "ref_abc", u.RefCode)
	require.Equal(t, "ru", u.Lang)
}

func TestUpsertKeepsRefCode(t *testing.T) {
	svc := newTestService(t)

	_, created, err := svc.Upsert(context.Background(), UpsertParams{ID: 100, RefCode: "first"})
	require.NoError(t, err)
	require.True(t, created)

	// A later /start with a different payload must not rewrite the code.
	u, created, err := svc.Upsert(context.Background(), UpsertParams{ID: 100, RefCode: "second"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "first", u.RefCode)
}

func TestUpsertPreservesLang(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Upsert(ctx, UpsertParams{ID: 1, Lang: "de"})
	require.NoError(t, err)

	// Later contacts refresh display attributes but never the language,
	// whatever the client locale claims this time.
	u, _, err := svc.Upsert(ctx, UpsertParams{ID: 1, Username: "renamed", Lang: "en"})
	require.NoError(t, err)
	require.Equal(t, "de", u.Lang)
	require.Equal(t, "renamed", u.Username)

	// The explicit change path is SetLang.
	require.NoError(t, svc.SetLang(ctx, 1, "en"))
	u, err = svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "en", u.Lang)
}

func TestLangDefaultsToRussian(t *testing.T) {
	svc := newTestService(t)
	require.Equal(t, "ru", svc.Lang(context.Background(), 999))
}

func TestListRecipientsExcludesBlocked(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for id, lang := range map[int64]string{1: "ru", 2: "en", 3: "en", 4: "de"} {
		_, _, err := svc.Upsert(ctx, UpsertParams{ID: id, Lang: lang})
		require.NoError(t, err)
	}
	require.NoError(t, svc.SetBlocked(ctx, 3, true))

	all, err := svc.ListRecipients(ctx, "")
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2, 4}, all)

	english, err := svc.ListRecipients(ctx, "en")
	require.NoError(t, err)
	require.Equal(t, []int64{2}, english)
}

func TestCountByLang(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for id, lang := range map[int64]string{1: "ru", 2: "ru", 3: "en"} {
		_, _, err := svc.Upsert(ctx, UpsertParams{ID: id, Lang: lang})
		require.NoError(t, err)
	}
	require.NoError(t, svc.SetBlocked(ctx, 2, true))

	total, err := svc.CountByLang(ctx, "")
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	ru, err := svc.CountByLang(ctx, "ru")
	require.NoError(t, err)
	require.Equal(t, int64(1), ru)
}
