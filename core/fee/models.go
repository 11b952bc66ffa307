package fee

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Categories
const (
	CategoryTuition   = "tuition"
	CategoryAdmission = "admission"
	CategoryExam      = "exam"
	CategoryMaterial  = "material"
	CategoryOther     = "other"
)

// Frequencies
const (
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
	FrequencyOneTime   = "one_time"
)

// Statuses. StatusOverdue is never stored: it is derived from the due date.
const (
	StatusPending = "pending"
	StatusPartial = "partial"
	StatusPaid    = "paid"
	StatusWaived  = "waived"
	StatusOverdue = "overdue"
)

// Payment methods
const (
	MethodCash         = "cash"
	MethodCard         = "card"
	MethodUPI          = "upi"
	MethodBankTransfer = "bank_transfer"
	MethodCheque       = "cheque"
)

// Structure is a fee template: an amount charged for a category at a given frequency,
// to a whole batch or to the students of one subject.
type Structure struct {
	ID        string    `json:"id" bson:"id"`
	CenterID  string    `json:"center_id" bson:"center_id"`
	Name      string    `json:"name" bson:"name"`
	Category  string    `json:"category" bson:"category"`
	Amount    float64   `json:"amount" bson:"amount"`
	Frequency string    `json:"frequency" bson:"frequency"`
	Batch     string    `json:"batch" bson:"batch"`
	SubjectID string    `json:"subject_id" bson:"subject_id"`
	DueDay    int       `json:"due_day" bson:"due_day"`
	IsActive  bool      `json:"is_active" bson:"is_active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

type NewStructure struct {
	Name      string  `json:"name" validate:"required"`
	Category  string  `json:"category" validate:"required,oneof=tuition admission exam material other"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Frequency string  `json:"frequency" validate:"required,oneof=monthly quarterly yearly one_time"`
	Batch     string  `json:"batch"`
	SubjectID string  `json:"subject_id"`
	DueDay    int     `json:"due_day" validate:"omitempty,min=1,max=28"`
}

func (ns *NewStructure) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Category = core.CleanString(ns.Category, true /* lower */)
	ns.Frequency = core.CleanString(ns.Frequency, true /* lower */)
	ns.Batch = core.CleanString(ns.Batch)
	ns.SubjectID = core.CleanString(ns.SubjectID)
	return validate.Struct(ns)
}

type UpdateStructure struct {
	Name      string   `json:"name"`
	Category  string   `json:"category" validate:"omitempty,oneof=tuition admission exam material other"`
	Amount    *float64 `json:"amount" validate:"omitempty,gt=0"`
	Frequency string   `json:"frequency" validate:"omitempty,oneof=monthly quarterly yearly one_time"`
	Batch     *string  `json:"batch"`
	SubjectID *string  `json:"subject_id"`
	DueDay    *int     `json:"due_day" validate:"omitempty,min=1,max=28"`
	IsActive  *bool    `json:"is_active"`
}

func (us *UpdateStructure) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Category = core.CleanString(us.Category, true /* lower */)
	us.Frequency = core.CleanString(us.Frequency, true /* lower */)
	if us.Batch != nil {
		*us.Batch = core.CleanString(*us.Batch)
	}
	if us.SubjectID != nil {
		*us.SubjectID = core.CleanString(*us.SubjectID)
	}
	return validate.Struct(us)
}

type StructureFilter struct {
	Category  string `query:"category"`
	Frequency string `query:"frequency"`
	Batch     string `query:"batch"`
	IsActive  *bool  `query:"is_active"`
}

func (sf *StructureFilter) Where() core.Filter {
	where := core.Filter{}
	if sf == nil {
		return where
	}
	if sf.Category = core.CleanString(sf.Category, true /* lower */); sf.Category != "" {
		where["category"] = sf.Category
	}
	if sf.Frequency = core.CleanString(sf.Frequency, true /* lower */); sf.Frequency != "" {
		where["frequency"] = sf.Frequency
	}
	if sf.Batch = core.CleanString(sf.Batch); sf.Batch != "" {
		where["batch"] = sf.Batch
	}
	if sf.IsActive != nil {
		where["is_active"] = *sf.IsActive
	}
	return where
}

type Payment struct {
	Amount     float64   `json:"amount" bson:"amount"`
	Method     string    `json:"method" bson:"method"`
	Reference  string    `json:"reference" bson:"reference"`
	PaidAt     time.Time `json:"paid_at" bson:"paid_at"` // UTC
	RecordedBy string    `json:"recorded_by" bson:"recorded_by"`
}

// StudentFee is a fee structure charged to one student for one period.
type StudentFee struct {
	ID            string    `json:"id" bson:"id"`
	CenterID      string    `json:"center_id" bson:"center_id"`
	StudentID     string    `json:"student_id" bson:"student_id"`
	StudentName   string    `json:"student_name" bson:"student_name"`
	Batch         string    `json:"batch" bson:"batch"`
	StructureID   string    `json:"structure_id" bson:"structure_id"`
	StructureName string    `json:"structure_name" bson:"structure_name"`
	Category      string    `json:"category" bson:"category"`
	Period        string    `json:"period" bson:"period"` // YYYY-MM
	Amount        float64   `json:"amount" bson:"amount"`
	PaidAmount    float64   `json:"paid_amount" bson:"paid_amount"`
	Status        string    `json:"status" bson:"status"`
	DueDate       time.Time `json:"due_date" bson:"due_date"` // UTC
	PaidAt        time.Time `json:"paid_at" bson:"paid_at"`   // UTC, set once fully paid
	Payments      []Payment `json:"payments" bson:"payments"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"` // UTC
	// RunID identifies the generation or bulk assignment that created the fee.
	RunID         string    `json:"run_id,omitempty" bson:"run_id,omitempty"`

	// Overdue is derived when the fee is read.
	Overdue bool `json:"overdue" bson:"-"`
}

func (f StudentFee) Outstanding() float64 {
	if f.Status == StatusWaived {
		return 0
	}
	if out := core.RoundMoney(f.Amount - f.PaidAmount); out > 0 {
		return out
	}
	return 0
}

func (f StudentFee) IsOpen() bool {
	return f.Status == StatusPending || f.Status == StatusPartial
}

// IsOverdue reports whether the fee is still open after its due date.
func (f StudentFee) IsOverdue(now time.Time) bool {
	return f.IsOpen() && !f.DueDate.IsZero() && f.DueDate.Before(now)
}

// StatusFromPaid returns the status of a non-waived fee given its paid amount.
func StatusFromPaid(amount, paid float64) string {
	switch {
	case paid <= 0:
		return StatusPending
	case core.RoundMoney(paid) >= core.RoundMoney(amount):
		return StatusPaid
	}
	return StatusPartial
}

type NewPayment struct {
	Amount    float64    `json:"amount" validate:"required,gt=0"`
	Method    string     `json:"method" validate:"required,oneof=cash card upi bank_transfer cheque"`
	Reference string     `json:"reference"`
	PaidAt    *time.Time `json:"paid_at"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.Method = core.CleanString(np.Method, true /* lower */)
	np.Reference = core.CleanString(np.Reference)
	np.Amount = core.RoundMoney(np.Amount)
	return validate.Struct(np)
}

type GenerateRequest struct {
	Period string `json:"period" validate:"required,period"`
}

func (gr *GenerateRequest) Validate(validate *validator.Validate) error {
	gr.Period = core.CleanString(gr.Period)
	return validate.Struct(gr)
}

type AssignRequest struct {
	StructureID string     `json:"structure_id" validate:"required"`
	StudentIDs  []string   `json:"student_ids" validate:"required_without=Batch"`
	Batch       string     `json:"batch" validate:"required_without=StudentIDs"`
	Period      string     `json:"period" validate:"required,period"`
	DueDate     *time.Time `json:"due_date"`
}

func (ar *AssignRequest) Validate(validate *validator.Validate) error {
	ar.StructureID = core.CleanString(ar.StructureID)
	ar.StudentIDs = core.CleanStrings(ar.StudentIDs)
	if len(ar.StudentIDs) == 0 {
		ar.StudentIDs = nil
	}
	ar.Batch = core.CleanString(ar.Batch)
	ar.Period = core.CleanString(ar.Period)
	return validate.Struct(ar)
}

type ReminderRequest struct {
	Period string `json:"period" validate:"required,period"`
}

func (rr *ReminderRequest) Validate(validate *validator.Validate) error {
	rr.Period = core.CleanString(rr.Period)
	return validate.Struct(rr)
}

type QueryFilter struct {
	Search    string         `query:"search"`
	StudentID string         `query:"student_id"`
	Status    string         `query:"status"`
	Period    string         `query:"period"`
	Category  string         `query:"category"`
	Batch     string         `query:"batch"`
	DueFrom   core.QueryTime `query:"due_from"`
	DueTo     core.QueryTime `query:"due_to"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Period = core.CleanString(qf.Period)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.Batch = core.CleanString(qf.Batch)
}

// Where returns the part of the filter the document store can apply.
// overdue fees are open fees: the due date is checked in memory.
func (qf *QueryFilter) Where() core.Filter {
	where := core.Filter{}
	if qf == nil {
		return where
	}
	if qf.StudentID != "" {
		where["student_id"] = qf.StudentID
	}
	switch qf.Status {
	case "":
	case StatusOverdue:
		where["status"] = []string{StatusPending, StatusPartial}
	default:
		where["status"] = qf.Status
	}
	if qf.Period != "" {
		where["period"] = qf.Period
	}
	if qf.Category != "" {
		where["category"] = qf.Category
	}
	if qf.Batch != "" {
		where["batch"] = qf.Batch
	}
	return where
}

func (qf *QueryFilter) Match(f StudentFee, now time.Time) bool {
	if qf.Search != "" && !core.ContainsFold(qf.Search, f.StudentName, f.StructureName) {
		return false
	}
	if qf.StudentID != "" && f.StudentID != qf.StudentID {
		return false
	}
	switch qf.Status {
	case "":
	case StatusOverdue:
		if !f.IsOverdue(now) {
			return false
		}
	default:
		if f.Status != qf.Status {
			return false
		}
	}
	if qf.Period != "" && f.Period != qf.Period {
		return false
	}
	if qf.Category != "" && f.Category != qf.Category {
		return false
	}
	if qf.Batch != "" && f.Batch != qf.Batch {
		return false
	}
	if !qf.DueFrom.IsZero() && f.DueDate.Before(qf.DueFrom.Time) {
		return false
	}
	if !qf.DueTo.IsZero() && f.DueDate.After(qf.DueTo.EndOfDay()) {
		return false
	}
	return true
}

type (
	Summary struct {
		Count        int            `json:"count"`
		Billed       float64        `json:"billed"`
		Collected    float64        `json:"collected"`
		Outstanding  float64        `json:"outstanding"`
		Overdue      float64        `json:"overdue"`
		OverdueCount int            `json:"overdue_count"`
		ByStatus     map[string]int `json:"by_status"`
	}

	// CollectionBucket sums the payments received in one month.
	CollectionBucket struct {
		Month    string  `json:"month"` // YYYY-MM
		Amount   float64 `json:"amount"`
		Payments int     `json:"payments"`
	}

	GenerateReport struct {
		Period    string `json:"period"`
		Created   int    `json:"created"`
		Skipped   int    `json:"skipped"`
		Unmatched int    `json:"unmatched"`
	}

	AssignReport struct {
		Period  string `json:"period"`
		Created int    `json:"created"`
		Skipped int    `json:"skipped"`
	}

	ReminderReport struct {
		Period   string `json:"period"`
		Students int    `json:"students"`
		Fees     int    `json:"fees"`
		NoEmail  int    `json:"no_email"`
	}
)
