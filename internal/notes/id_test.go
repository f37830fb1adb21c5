package notes

import "testing"

func TestPublicIDProviderIssuesValidUniqueIDs(t *testing.T) {
	provider := NewPublicIDProvider()
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		id, err := provider.NewID()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := NewPublicID(id); err != nil {
			t.Fatalf("generated id fails public id validation: %v", err)
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate public id issued: %s", id)
		}
		seen[id] = struct{}{}
	}
}
