package queue

// ScopeKind selects the dimension a queue ordering is maintained over.
type ScopeKind string

const (
	ScopeDispensary ScopeKind = "dispensary"
	ScopeDoctor     ScopeKind = "doctor"
)

// Scope identifies one independently ordered waiting line: either all
// WAITING entries at a dispensary, or all WAITING entries assigned to a
// doctor.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// DispensaryScope builds a dispensary-wide scope.
func DispensaryScope(dispensaryID string) Scope {
	return Scope{Kind: ScopeDispensary, ID: dispensaryID}
}

// DoctorScope builds a per-doctor scope.
func DoctorScope(doctorID string) Scope {
	return Scope{Kind: ScopeDoctor, ID: doctorID}
}

func (s Scope) String() string {
	return string(s.Kind) + ":" + s.ID
}
