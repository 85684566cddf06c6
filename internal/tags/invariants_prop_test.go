package tags

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pders01/savepoint/internal/models"
)

var tagPool = []string{"a", "b", "c"}

// apply runs one encoded operation. Errors of the expected kinds are part of
// normal operation; anything else fails the property.
func (f *fixture) apply(code int) error {
	op, arg := code%6, code/6
	tag := tagPool[arg%len(tagPool)]
	other := tagPool[(arg/len(tagPool))%len(tagPool)]

	var err error
	switch op {
	case 0:
		_, err = f.store.Save(f.env.LiveDir, []string{tag, other}, "")
	case 1:
		list, listErr := f.store.List()
		if listErr != nil || len(list) == 0 {
			return listErr
		}
		err = f.store.DeleteSnapshot(list[arg%len(list)].ID)
	case 2:
		err = f.tags.CreateTag(tag)
	case 3:
		err = f.tags.RenameTag(tag, other)
	case 4:
		err = f.tags.DeleteTag(tag)
	case 5:
		err = f.tags.MergeTags(tag, other)
	}

	switch {
	case err == nil,
		errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrAlreadyExists),
		errors.Is(err, models.ErrSameTag):
		return nil
	}
	return err
}

func TestInvariantsHoldAfterEveryOperation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	properties.Property("tag members exist and both sides agree", prop.ForAll(
		func(codes []int) bool {
			f := newFixture(t)
			defer f.env.CloseDB()

			for _, code := range codes {
				if err := f.apply(code); err != nil {
					t.Logf("operation %d failed: %v", code, err)
					return false
				}
				problems, err := f.store.Check()
				if err != nil || len(problems) > 0 {
					t.Logf("after operation %d: %v %v", code, problems, err)
					return false
				}
			}
			return true
		},
		gen.SliceOfN(12, gen.IntRange(0, 59)),
	))

	properties.TestingRun(t)
}
