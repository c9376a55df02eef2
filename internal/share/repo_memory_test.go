package share

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkgate/internal/errx"
)

func newTestLink(owner uuid.UUID, token string) Link {
	return Link{
		OwnerID:     owner,
		Token:       token,
		Title:       "doc",
		Content:     "hello",
		ContentType: "text/plain",
	}
}

func TestMemoryRepository_Create(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("assigns id, timestamps and initial state", func(t *testing.T) {
		repo := NewMemoryRepository(WithMemoryClock(fixedClock))

		link := newTestLink(owner, testToken(1))
		link.CurrentViews = 7
		link.IsActive = false

		got, err := repo.Create(ctx, link)
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
		if got.ID == uuid.Nil {
			t.Error("ID = nil, want generated")
		}
		if got.ID.Version() != 7 {
			t.Errorf("ID version = %d, want 7", got.ID.Version())
		}
		if got.CurrentViews != 0 || !got.IsActive {
			t.Errorf("CurrentViews=%d IsActive=%v, want 0 and true", got.CurrentViews, got.IsActive)
		}
		if !got.CreatedAt.Equal(testNow) || !got.UpdatedAt.Equal(testNow) {
			t.Errorf("timestamps = %v/%v, want %v", got.CreatedAt, got.UpdatedAt, testNow)
		}
	})

	t.Run("rejects duplicate token", func(t *testing.T) {
		repo := NewMemoryRepository()
		if _, err := repo.Create(ctx, newTestLink(owner, testToken(1))); err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}

		_, err := repo.Create(ctx, newTestLink(uuid.New(), testToken(1)))
		if errx.KindOf(err) != errx.Conflict {
			t.Errorf("KindOf(err) = %v, want %v", errx.KindOf(err), errx.Conflict)
		}
		if !errors.Is(err, ErrTokenTaken) {
			t.Errorf("error = %v, want ErrTokenTaken", err)
		}
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		repo := NewMemoryRepository()
		tests := []struct {
			name   string
			mutate func(*Link)
			field  string
		}{
			{"title", func(l *Link) { l.Title = "  " }, "title"},
			{"content", func(l *Link) { l.Content = "" }, "content"},
			{"content type", func(l *Link) { l.ContentType = "" }, "content_type"},
			{"owner", func(l *Link) { l.OwnerID = uuid.Nil }, "owner_id"},
			{"negative quota", func(l *Link) { l.MaxViews = int32p(-1) }, "max_views"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				link := newTestLink(owner, testToken(2))
				tt.mutate(&link)

				_, err := repo.Create(ctx, link)
				if errx.KindOf(err) != errx.Invalid {
					t.Fatalf("KindOf(err) = %v, want %v", errx.KindOf(err), errx.Invalid)
				}
				var fe *FieldError
				if !errors.As(err, &fe) || fe.Field != tt.field {
					t.Errorf("error = %v, want field %q", err, tt.field)
				}
			})
		}
	})

	t.Run("returned link is a copy", func(t *testing.T) {
		repo := NewMemoryRepository()
		link := newTestLink(owner, testToken(3))
		link.MaxViews = int32p(4)

		created, err := repo.Create(ctx, link)
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
		*created.MaxViews = 100
		*link.MaxViews = 100

		stored, _ := repo.GetByID(ctx, created.ID)
		if *stored.MaxViews != 4 {
			t.Errorf("stored MaxViews = %d, want 4", *stored.MaxViews)
		}
	})
}

func TestMemoryRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	owner := uuid.New()
	created, err := repo.Create(ctx, newTestLink(owner, testToken(1)))
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	if got, err := repo.GetByToken(ctx, testToken(1)); err != nil || got.ID != created.ID {
		t.Errorf("GetByToken() = %v, %v; want %v", got.ID, err, created.ID)
	}
	if _, err := repo.GetByToken(ctx, testToken(2)); errx.KindOf(err) != errx.NotFound {
		t.Errorf("GetByToken(missing) kind = %v, want NotFound", errx.KindOf(err))
	}
	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrLinkNotFound", err)
	}
}

func TestMemoryRepository_ListByOwner(t *testing.T) {
	ctx := context.Background()
	clock := testNow
	repo := NewMemoryRepository(WithMemoryClock(func() time.Time { return clock }))
	owner, other := uuid.New(), uuid.New()

	var want []uuid.UUID
	for i := range 3 {
		clock = testNow.Add(time.Duration(i) * time.Minute)
		l, err := repo.Create(ctx, newTestLink(owner, testToken(i+1)))
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
		want = append([]uuid.UUID{l.ID}, want...)
	}
	if _, err := repo.Create(ctx, newTestLink(other, testToken(10))); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	links, err := repo.ListByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("ListByOwner() unexpected error: %v", err)
	}
	if len(links) != len(want) {
		t.Fatalf("len(links) = %d, want %d", len(links), len(want))
	}
	for i, l := range links {
		if l.ID != want[i] {
			t.Errorf("links[%d] = %v, want %v (newest first)", i, l.ID, want[i])
		}
	}

	empty, err := repo.ListByOwner(ctx, uuid.New())
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("ListByOwner(unknown) = %v, %v; want empty non-nil slice", empty, err)
	}
}

func TestMemoryRepository_UpdateByOwner(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	setup := func(t *testing.T) (*MemoryRepository, Link) {
		t.Helper()
		repo := NewMemoryRepository()
		link := newTestLink(owner, testToken(1))
		link.ExpiresAt = timep(testNow.Add(time.Hour))
		link.MaxViews = int32p(10)
		link.PasswordHash = "hashed:secret"
		created, err := repo.Create(ctx, link)
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
		return repo, created
	}

	t.Run("applies only the provided fields", func(t *testing.T) {
		repo, link := setup(t)

		got, err := repo.UpdateByOwner(ctx, owner, link.ID, Patch{Title: strp("renamed")})
		if err != nil {
			t.Fatalf("UpdateByOwner() unexpected error: %v", err)
		}
		if got.Title != "renamed" {
			t.Errorf("Title = %q, want %q", got.Title, "renamed")
		}
		if got.Content != link.Content || got.MaxViews == nil || *got.MaxViews != 10 || got.PasswordHash != link.PasswordHash {
			t.Errorf("untouched fields changed: %+v", got)
		}
	})

	t.Run("clears nullable fields", func(t *testing.T) {
		repo, link := setup(t)

		got, err := repo.UpdateByOwner(ctx, owner, link.ID, Patch{
			ClearExpiresAt: true,
			ClearMaxViews:  true,
			ClearPassword:  true,
			IsActive:       boolp(false),
		})
		if err != nil {
			t.Fatalf("UpdateByOwner() unexpected error: %v", err)
		}
		if got.ExpiresAt != nil || got.MaxViews != nil || got.HasPassword() || got.IsActive {
			t.Errorf("got %+v, want cleared expiry, quota, password and inactive", got)
		}
	})

	t.Run("rejects quota below current views", func(t *testing.T) {
		repo, link := setup(t)
		for range 3 {
			if _, ok, _ := repo.TryIncrementViews(ctx, link.ID, testNow); !ok {
				t.Fatal("TryIncrementViews() = false, want true")
			}
		}

		_, err := repo.UpdateByOwner(ctx, owner, link.ID, Patch{MaxViews: int32p(2)})
		if errx.KindOf(err) != errx.Invalid {
			t.Fatalf("KindOf(err) = %v, want %v", errx.KindOf(err), errx.Invalid)
		}

		got, err := repo.UpdateByOwner(ctx, owner, link.ID, Patch{MaxViews: int32p(3)})
		if err != nil {
			t.Fatalf("UpdateByOwner(quota == views) unexpected error: %v", err)
		}
		if !got.QuotaReached() {
			t.Error("QuotaReached() = false, want true")
		}
	})

	t.Run("other owner sees not found", func(t *testing.T) {
		repo, link := setup(t)

		_, err := repo.UpdateByOwner(ctx, uuid.New(), link.ID, Patch{Title: strp("x")})
		if errx.KindOf(err) != errx.NotFound {
			t.Errorf("KindOf(err) = %v, want %v", errx.KindOf(err), errx.NotFound)
		}
		stored, _ := repo.GetByID(ctx, link.ID)
		if stored.Title != "doc" {
			t.Errorf("Title = %q, want unchanged", stored.Title)
		}
	})
}

func TestMemoryRepository_ToggleActive(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	owner := uuid.New()
	link, err := repo.Create(ctx, newTestLink(owner, testToken(1)))
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	t.Run("flips the flag", func(t *testing.T) {
		got, err := repo.ToggleActive(ctx, owner, link.ID)
		if err != nil || got.IsActive {
			t.Fatalf("ToggleActive() = %v, %v; want inactive", got.IsActive, err)
		}
		got, err = repo.ToggleActive(ctx, owner, link.ID)
		if err != nil || !got.IsActive {
			t.Fatalf("ToggleActive() = %v, %v; want active", got.IsActive, err)
		}
	})

	t.Run("concurrent toggles never lose a flip", func(t *testing.T) {
		const n = 50
		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.ToggleActive(ctx, owner, link.ID); err != nil {
					t.Errorf("ToggleActive() unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		got, _ := repo.GetByID(ctx, link.ID)
		if !got.IsActive {
			t.Error("IsActive = false after an even number of toggles, want true")
		}
	})

	t.Run("other owner sees not found", func(t *testing.T) {
		if _, err := repo.ToggleActive(ctx, uuid.New(), link.ID); errx.KindOf(err) != errx.NotFound {
			t.Errorf("KindOf(err) = %v, want NotFound", errx.KindOf(err))
		}
	})
}

func TestMemoryRepository_TryIncrementViews(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	owner := uuid.New()

	t.Run("stops at the quota", func(t *testing.T) {
		link := newTestLink(owner, testToken(1))
		link.MaxViews = int32p(2)
		created, _ := repo.Create(ctx, link)

		for want := int32(1); want <= 2; want++ {
			views, ok, err := repo.TryIncrementViews(ctx, created.ID, testNow)
			if err != nil || !ok || views != want {
				t.Fatalf("TryIncrementViews() = %d, %v, %v; want %d, true, nil", views, ok, err, want)
			}
		}
		views, ok, err := repo.TryIncrementViews(ctx, created.ID, testNow)
		if err != nil || ok || views != 0 {
			t.Errorf("TryIncrementViews() past quota = %d, %v, %v; want 0, false, nil", views, ok, err)
		}
	})

	t.Run("zero quota never increments", func(t *testing.T) {
		link := newTestLink(owner, testToken(2))
		link.MaxViews = int32p(0)
		created, _ := repo.Create(ctx, link)

		if _, ok, _ := repo.TryIncrementViews(ctx, created.ID, testNow); ok {
			t.Error("TryIncrementViews() = true, want false")
		}
	})

	t.Run("unlimited keeps counting", func(t *testing.T) {
		created, _ := repo.Create(ctx, newTestLink(owner, testToken(3)))
		for range 100 {
			if _, ok, _ := repo.TryIncrementViews(ctx, created.ID, testNow); !ok {
				t.Fatal("TryIncrementViews() = false, want true")
			}
		}
		got, _ := repo.GetByID(ctx, created.ID)
		if got.CurrentViews != 100 {
			t.Errorf("CurrentViews = %d, want 100", got.CurrentViews)
		}
	})

	t.Run("disabled link is not counted", func(t *testing.T) {
		created, _ := repo.Create(ctx, newTestLink(owner, testToken(4)))
		if _, err := repo.ToggleActive(ctx, owner, created.ID); err != nil {
			t.Fatalf("ToggleActive() unexpected error: %v", err)
		}

		if _, ok, err := repo.TryIncrementViews(ctx, created.ID, testNow); ok || err != nil {
			t.Errorf("TryIncrementViews() = %v, %v; want false, nil", ok, err)
		}
		got, _ := repo.GetByID(ctx, created.ID)
		if got.CurrentViews != 0 {
			t.Errorf("CurrentViews = %d, want 0", got.CurrentViews)
		}
	})

	t.Run("expiry is checked against the given time", func(t *testing.T) {
		link := newTestLink(owner, testToken(5))
		link.ExpiresAt = timep(testNow.Add(time.Minute))
		created, _ := repo.Create(ctx, link)

		if _, ok, _ := repo.TryIncrementViews(ctx, created.ID, testNow); !ok {
			t.Fatal("TryIncrementViews() before expiry = false, want true")
		}
		if _, ok, _ := repo.TryIncrementViews(ctx, created.ID, testNow.Add(time.Minute)); ok {
			t.Error("TryIncrementViews() at expiry = true, want false")
		}
		got, _ := repo.GetByID(ctx, created.ID)
		if got.CurrentViews != 1 {
			t.Errorf("CurrentViews = %d, want 1", got.CurrentViews)
		}
	})

	t.Run("missing link is not counted", func(t *testing.T) {
		if _, ok, err := repo.TryIncrementViews(ctx, uuid.New(), testNow); ok || err != nil {
			t.Errorf("TryIncrementViews() = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("views leave UpdatedAt alone", func(t *testing.T) {
		clock := testNow
		repo := NewMemoryRepository(WithMemoryClock(func() time.Time { return clock }))
		created, _ := repo.Create(ctx, newTestLink(owner, testToken(6)))

		clock = testNow.Add(time.Hour)
		if _, ok, _ := repo.TryIncrementViews(ctx, created.ID, clock); !ok {
			t.Fatal("TryIncrementViews() = false, want true")
		}
		got, _ := repo.GetByID(ctx, created.ID)
		if !got.UpdatedAt.Equal(testNow) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, testNow)
		}
	})
}

func TestMemoryRepository_AccessRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	owner := uuid.New()
	link, _ := repo.Create(ctx, newTestLink(owner, testToken(1)))

	for i := range 3 {
		err := repo.InsertAccessRecord(ctx, AccessRecord{
			LinkID:   link.ID,
			Referrer: "r" + string(rune('0'+i)),
			ViewedAt: testNow.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("InsertAccessRecord() unexpected error: %v", err)
		}
	}

	t.Run("lists newest first", func(t *testing.T) {
		records, err := repo.ListAccessRecords(ctx, link.ID)
		if err != nil {
			t.Fatalf("ListAccessRecords() unexpected error: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("len(records) = %d, want 3", len(records))
		}
		if records[0].Referrer != "r2" || records[2].Referrer != "r0" {
			t.Errorf("order = %q..%q, want r2..r0", records[0].Referrer, records[2].Referrer)
		}
	})

	t.Run("rejects records for unknown links", func(t *testing.T) {
		err := repo.InsertAccessRecord(ctx, AccessRecord{LinkID: uuid.New()})
		if errx.KindOf(err) != errx.NotFound {
			t.Errorf("KindOf(err) = %v, want NotFound", errx.KindOf(err))
		}
	})

	t.Run("delete cascades to records", func(t *testing.T) {
		if err := repo.DeleteByOwner(ctx, uuid.New(), link.ID); errx.KindOf(err) != errx.NotFound {
			t.Fatalf("DeleteByOwner(other owner) kind = %v, want NotFound", errx.KindOf(err))
		}
		if err := repo.DeleteByOwner(ctx, owner, link.ID); err != nil {
			t.Fatalf("DeleteByOwner() unexpected error: %v", err)
		}

		records, _ := repo.ListAccessRecords(ctx, link.ID)
		if len(records) != 0 {
			t.Errorf("len(records) = %d after delete, want 0", len(records))
		}
		if _, err := repo.GetByToken(ctx, testToken(1)); errx.KindOf(err) != errx.NotFound {
			t.Errorf("GetByToken() after delete kind = %v, want NotFound", errx.KindOf(err))
		}
		if _, err := repo.Create(ctx, newTestLink(owner, testToken(1))); err != nil {
			t.Errorf("token should be reusable after delete: %v", err)
		}
	})
}
