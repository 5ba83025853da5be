package store

// Notes:
// - storeContract runs the same behavior checks against every backend that
//   can run without external services (Memory, FS, Redis via miniredis).
// - GCS needs a real bucket; only its error mapping is unit tested.

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	md2pdf "github.com/alnah/go-md2pdf-live"
)

func TestNewID(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if !strings.HasPrefix(id, IDPrefix) {
			t.Fatalf("NewID() = %q, want prefix %q", id, IDPrefix)
		}
		if err := ValidateID(id); err != nil {
			t.Fatalf("ValidateID(NewID()) = %v", err)
		}
		if seen[id] {
			t.Fatalf("NewID() returned duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestValidateID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id      string
		wantErr error
	}{
		{"markdown-cv8k3l2p0000000000", nil},
		{"abc_DEF-123", nil},
		{"", md2pdf.ErrMissingSourceID},
		{"../etc/passwd", md2pdf.ErrInvalidSourceID},
		{"a/b", md2pdf.ErrInvalidSourceID},
		{"a.md", md2pdf.ErrInvalidSourceID},
		{"with space", md2pdf.ErrInvalidSourceID},
		{"nul\x00byte", md2pdf.ErrInvalidSourceID},
		{strings.Repeat("a", maxIDLength+1), md2pdf.ErrInvalidSourceID},
	}

	for _, tt := range tests {
		err := ValidateID(tt.id)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateID(%q) = %v, want %v", tt.id, err, tt.wantErr)
		}
		if tt.wantErr != nil && md2pdf.KindOf(err) != md2pdf.KindInvalidInput {
			t.Errorf("ValidateID(%q) kind = %s, want InvalidInput", tt.id, md2pdf.KindOf(err))
		}
	}
}

// storeContract checks the md2pdf.Store behavior every backend must share.
func storeContract(t *testing.T, s md2pdf.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("put then get", func(t *testing.T) {
		id, err := s.Put(ctx, []byte("# Hi\n"), "hi.md")
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if !strings.HasPrefix(id, IDPrefix) {
			t.Errorf("Put() id = %q, want prefix %q", id, IDPrefix)
		}

		f, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if f.ID != id || f.Name != "hi.md" || string(f.Data) != "# Hi\n" || f.Size != 5 {
			t.Errorf("Get() = %+v", f)
		}
		if f.UploadedAt.IsZero() {
			t.Error("UploadedAt not recorded")
		}
		if f.Stem() != "hi" {
			t.Errorf("Stem() = %q, want hi", f.Stem())
		}
	})

	t.Run("binary safe", func(t *testing.T) {
		data := []byte{0, 1, 2, 0xff, '\n'}
		id, err := s.Put(ctx, data, "bin.md")
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		f, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(f.Data) != string(data) {
			t.Errorf("Data = %v, want %v", f.Data, data)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Get(ctx, "markdown-unknown")
		if !errors.Is(err, md2pdf.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, "markdown-unknown"); !errors.Is(err, md2pdf.ErrNotFound) {
			t.Errorf("Delete() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := s.Get(ctx, "../../etc/passwd")
		if md2pdf.KindOf(err) != md2pdf.KindInvalidInput {
			t.Errorf("Get() error = %v, want InvalidInput", err)
		}
		if err := s.Delete(ctx, "a/b"); md2pdf.KindOf(err) != md2pdf.KindInvalidInput {
			t.Errorf("Delete() error = %v, want InvalidInput", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		id, err := s.Put(ctx, []byte("bye"), "bye.md")
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := s.Delete(ctx, id); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Get(ctx, id); !errors.Is(err, md2pdf.ErrNotFound) {
			t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, id); !errors.Is(err, md2pdf.ErrNotFound) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("concurrent puts", func(t *testing.T) {
		var wg sync.WaitGroup
		ids := make(chan string, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := s.Put(ctx, []byte("x"), "x.md")
				if err != nil {
					t.Errorf("Put() error = %v", err)
					return
				}
				ids <- id
			}()
		}
		wg.Wait()
		close(ids)

		seen := make(map[string]bool)
		for id := range ids {
			if seen[id] {
				t.Errorf("duplicate id %q", id)
			}
			seen[id] = true
		}
	})
}

func TestMemory(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	storeContract(t, m)

	t.Run("returns copies", func(t *testing.T) {
		id, _ := m.Put(context.Background(), []byte("abc"), "a.md")
		f, _ := m.Get(context.Background(), id)
		f.Data[0] = 'X'

		again, _ := m.Get(context.Background(), id)
		if string(again.Data) != "abc" {
			t.Errorf("stored data mutated through Get: %q", again.Data)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := m.Put(ctx, []byte("x"), "x.md"); !errors.Is(err, context.Canceled) {
			t.Errorf("Put() error = %v, want context.Canceled", err)
		}
	})
}
