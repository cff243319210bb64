package evolution

// ChangeKind is the closed set of structural differences the differ reports
type ChangeKind string

const (
	ChangeMetadata             ChangeKind = "METADATA_CHANGED"                 // title or description
	ChangeType                 ChangeKind = "TYPE_CHANGED"                     // root type
	ChangeRequiredFieldRemoved ChangeKind = "REQUIRED_FIELD_REMOVED"           // name dropped from required
	ChangeRequiredFieldAdded   ChangeKind = "REQUIRED_FIELD_ADDED"             // name added to required
	ChangeFieldRemoved         ChangeKind = "FIELD_REMOVED"                    // property deleted
	ChangeFieldAdded           ChangeKind = "FIELD_ADDED"                      // property introduced
	ChangeFieldType            ChangeKind = "FIELD_TYPE_CHANGED"               // property type
	ChangeEnumAdded            ChangeKind = "ENUM_ADDED"                       // property gained an enum
	ChangeEnumRemoved          ChangeKind = "ENUM_REMOVED"                     // property lost its enum
	ChangeEnumValueAdded       ChangeKind = "ENUM_VALUE_ADDED"                 // one value added
	ChangeEnumValueRemoved     ChangeKind = "ENUM_VALUE_REMOVED"               // one value removed
	ChangeConstraintTightened  ChangeKind = "CONSTRAINT_TIGHTENED"             // fewer values accepted
	ChangeConstraintRelaxed    ChangeKind = "CONSTRAINT_RELAXED"               // more values accepted
	ChangeComposition          ChangeKind = "COMPOSITION_CHANGED"              // allOf or oneOf
	ChangeAdditionalRestricted ChangeKind = "ADDITIONAL_PROPERTIES_RESTRICTED" // allowed to false
	ChangeAdditionalRelaxed    ChangeKind = "ADDITIONAL_PROPERTIES_RELAXED"    // false to allowed
)

// Direction names which compatibility a breaking change violates
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
	DirectionBoth     Direction = "both"
)

// Impact is a severity tier independent of breaking status
type Impact string

const (
	ImpactLow    Impact = "LOW"
	ImpactMedium Impact = "MEDIUM"
	ImpactHigh   Impact = "HIGH"
)

// RiskLevel is the overall risk tier of a change set
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RootField is the Field value of changes on the schema root.
const RootField = "root"

// Change is one detected structural difference
type Change struct {
	Kind        ChangeKind `json:"kind"`
	Field       string     `json:"field"`
	Path        string     `json:"path"`
	Breaking    bool       `json:"breaking"`
	Direction   Direction  `json:"direction"`
	Impact      Impact     `json:"impact"`
	Description string     `json:"description"`
	OldValue    any        `json:"oldValue,omitempty"`
	NewValue    any        `json:"newValue,omitempty"`
}

// breaksBackward reports whether c prevents the new schema reading old data.
func (c Change) breaksBackward() bool {
	return c.Breaking && (c.Direction == DirectionBackward || c.Direction == DirectionBoth)
}

// breaksForward reports whether c prevents the old schema reading new data.
func (c Change) breaksForward() bool {
	return c.Breaking && (c.Direction == DirectionForward || c.Direction == DirectionBoth)
}

// MigrationStep is one actionable step for applying a schema change
type MigrationStep struct {
	Action      string `json:"action"`
	Field       string `json:"field"`
	Description string `json:"description"`
	Code        string `json:"code,omitempty"` // illustrative only
	Automated   bool   `json:"automated"`
	Complexity  Impact `json:"complexity"`
}

// RiskAssessment summarizes the risk of a change set
type RiskAssessment struct {
	OverallRisk        RiskLevel `json:"overallRisk"`
	BreakingChanges    int       `json:"breakingChanges"`
	RecommendedActions []string  `json:"recommendedActions"`
	RollbackPlan       []string  `json:"rollbackPlan"`
	AffectedConsumers  []string  `json:"affectedConsumers,omitempty"`
}

// EvolutionAnalysis is the result of comparing two schema versions
type EvolutionAnalysis struct {
	IsBackwardCompatible bool            `json:"isBackwardCompatible"`
	IsForwardCompatible  bool            `json:"isForwardCompatible"`
	Changes              []Change        `json:"changes"`
	MigrationPath        []MigrationStep `json:"migrationPath"`
	RiskAssessment       RiskAssessment  `json:"riskAssessment"`
}

// Summary counts changes by breaking status, impact and kind
type Summary struct {
	TotalChanges    int                `json:"totalChanges"`
	BreakingChanges int                `json:"breakingChanges"`
	HighImpact      int                `json:"highImpact"`
	ByKind          map[ChangeKind]int `json:"byKind"`
}

// Summarize counts the changes.
func Summarize(changes []Change) Summary {
	s := Summary{
		TotalChanges: len(changes),
		ByKind:       make(map[ChangeKind]int),
	}
	for _, c := range changes {
		if c.Breaking {
			s.BreakingChanges++
		}
		if c.Impact == ImpactHigh {
			s.HighImpact++
		}
		s.ByKind[c.Kind]++
	}
	return s
}

// HasKind reports whether any change has the given kind.
func HasKind(changes []Change, kind ChangeKind) bool {
	for _, c := range changes {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

// HasBreaking reports whether any change is breaking.
func HasBreaking(changes []Change) bool {
	for _, c := range changes {
		if c.Breaking {
			return true
		}
	}
	return false
}
