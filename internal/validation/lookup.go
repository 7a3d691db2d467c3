package validation

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/evalify/evalify-sub003/internal/types"
)

// LookupIndex holds the case-insensitive name tables used to resolve the
// references of one import. It is built once and only read afterwards.
type LookupIndex struct {
	semesters map[string]types.Semester
	batches   map[string]types.Batch
	faculty   map[string]types.Faculty
	orgUnits  map[string]types.OrgUnit
}

// LookupSource is the snapshot of persisted records an index is built from.
type LookupSource struct {
	Semesters []types.Semester
	Batches   []types.Batch
	Faculty   []types.Faculty
	OrgUnits  []types.OrgUnit
}

// NewLookupIndex builds the index. On key collisions the first record wins and
// the collision is logged. Faculty without the FACULTY role are left out.
func NewLookupIndex(src LookupSource, logger logrus.FieldLogger) *LookupIndex {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	idx := &LookupIndex{
		semesters: make(map[string]types.Semester, len(src.Semesters)),
		batches:   make(map[string]types.Batch, len(src.Batches)),
		faculty:   make(map[string]types.Faculty, len(src.Faculty)),
		orgUnits:  make(map[string]types.OrgUnit, len(src.OrgUnits)),
	}

	for _, s := range src.Semesters {
		if !putFirst(idx.semesters, s.Name, s) {
			logger.WithField("semester", s.Name).Warn("duplicate semester name in catalog, keeping first")
		}
	}
	for _, b := range src.Batches {
		if !putFirst(idx.batches, b.Name, b) {
			logger.WithField("batch", b.Name).Warn("duplicate batch name in catalog, keeping first")
		}
	}
	for _, f := range src.Faculty {
		if !strings.EqualFold(f.Role, types.RoleFaculty) {
			continue
		}
		if !putFirst(idx.faculty, f.ProfileID, f) {
			logger.WithField("profile_id", f.ProfileID).Warn("duplicate faculty profile id in catalog, keeping first")
		}
	}
	for _, o := range src.OrgUnits {
		code := o.Code()
		if !putFirst(idx.orgUnits, code, o) {
			logger.WithFields(logrus.Fields{
				"code":     code,
				"org_unit": o.Name,
			}).Warn("org units share a derived code, keeping first")
		}
	}
	return idx
}

// putFirst stores v under the folded key unless the key is taken or empty.
// It returns false only for a genuine collision.
func putFirst[V any](m map[string]V, key string, v V) bool {
	k := fold(key)
	if k == "" {
		return true
	}
	if _, ok := m[k]; ok {
		return false
	}
	m[k] = v
	return true
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Semester looks a semester up by name.
func (x *LookupIndex) Semester(name string) (types.Semester, bool) {
	s, ok := x.semesters[fold(name)]
	return s, ok
}

// Batch looks a batch up by name.
func (x *LookupIndex) Batch(name string) (types.Batch, bool) {
	b, ok := x.batches[fold(name)]
	return b, ok
}

// Faculty looks an instructor up by profile id.
func (x *LookupIndex) Faculty(profileID string) (types.Faculty, bool) {
	f, ok := x.faculty[fold(profileID)]
	return f, ok
}

// OrgUnit looks an org-unit up by its derived three-letter code.
func (x *LookupIndex) OrgUnit(code string) (types.OrgUnit, bool) {
	o, ok := x.orgUnits[fold(code)]
	return o, ok
}

// Counts reports the table sizes, for logging.
func (x *LookupIndex) Counts() logrus.Fields {
	return logrus.Fields{
		"semesters": len(x.semesters),
		"batches":   len(x.batches),
		"faculty":   len(x.faculty),
		"org_units": len(x.orgUnits),
	}
}
