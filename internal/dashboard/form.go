package dashboard

import (
	"strconv"
	"strings"

	"consultant-dashboard/internal/domain/address"
	domain "consultant-dashboard/internal/domain/user"
	ucuser "consultant-dashboard/internal/usecase/user"
	apperrors "consultant-dashboard/pkg/errors"
	"consultant-dashboard/pkg/format"
)

// NoConsultant is the consultant select value for a standalone client.
const NoConsultant = "none"

// Form is the state of the create/edit dialog. Its JSON form is the set of
// client-side signals bound to the inputs.
type Form struct {
	FormID       string `json:"formId"`
	UserID       string `json:"userId"` // empty when creating
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	CPF          string `json:"cpf"`
	CEP          string `json:"cep"`
	Address      string `json:"address"`
	Complement   string `json:"complement"`
	Age          string `json:"age"`
	Type         string `json:"type"`
	ConsultantID string `json:"consultantId"`
}

// NewForm returns an empty create form.
func NewForm(formID string) Form {
	return Form{FormID: formID, Type: string(domain.TypeClient), ConsultantID: NoConsultant}
}

// FormFromUser returns an edit form filled with u, with masked cpf, phone and cep.
func FormFromUser(formID string, u ucuser.User) Form {
	f := Form{
		FormID:       formID,
		UserID:       u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        format.Phone(u.Phone),
		CPF:          format.CPF(u.CPF),
		CEP:          format.CEP(u.CEP),
		Address:      u.Address,
		Type:         u.Type,
		ConsultantID: NoConsultant,
	}
	if u.Complement != nil {
		f.Complement = *u.Complement
	}
	if u.Age != nil {
		f.Age = strconv.Itoa(*u.Age)
	}
	if u.ConsultantID != nil {
		f.ConsultantID = *u.ConsultantID
	}
	return f
}

// IsEdit reports whether the form edits an existing user.
func (f *Form) IsEdit() bool {
	return f.UserID != ""
}

// Mask re-applies the input masks to cpf, phone and cep, as on every keystroke.
func (f *Form) Mask() {
	f.CPF = format.CPF(f.CPF)
	f.Phone = format.Phone(f.Phone)
	f.CEP = format.CEP(f.CEP)
}

// CEPComplete reports whether the cep holds all 8 digits, the lookup trigger.
func (f *Form) CEPComplete() bool {
	return len(format.UnformatCEP(f.CEP)) == 8
}

// ApplyAddress merges a lookup result. Blank values never overwrite what the
// operator typed.
func (f *Form) ApplyAddress(a *address.Address) {
	if a == nil {
		return
	}
	if a.Street != "" {
		f.Address = a.Street
	}
	if a.Complement != "" {
		f.Complement = a.Complement
	}
}

// ShowsConsultant reports whether the consultant select applies, which is only
// the case for clients.
func (f *Form) ShowsConsultant() bool {
	return f.Type == string(domain.TypeClient)
}

func (f *Form) consultant() string {
	if !f.ShowsConsultant() || f.ConsultantID == NoConsultant {
		return ""
	}
	return f.ConsultantID
}

func (f *Form) age() (*int, error) {
	s := strings.TrimSpace(f.Age)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, apperrors.NewValidationError("Age", "must be a whole number")
	}
	return &n, nil
}

// CreateRequest converts the form into a create request with digits-only cpf,
// phone and cep.
func (f *Form) CreateRequest() (ucuser.CreateUserRequest, error) {
	age, err := f.age()
	if err != nil {
		return ucuser.CreateUserRequest{}, err
	}

	req := ucuser.CreateUserRequest{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Phone:   format.Digits(f.Phone),
		Age:     age,
		CPF:     format.Digits(f.CPF),
		CEP:     format.UnformatCEP(f.CEP),
		Address: strings.TrimSpace(f.Address),
		Type:    f.Type,
	}
	if c := strings.TrimSpace(f.Complement); c != "" {
		req.Complement = &c
	}
	if id := f.consultant(); id != "" {
		req.ConsultantID = &id
	}
	return req, nil
}

// UpdateRequest converts the form into an update request. Every field is sent,
// so an emptied complement or consultant is cleared.
func (f *Form) UpdateRequest() (ucuser.UpdateUserRequest, error) {
	age, err := f.age()
	if err != nil {
		return ucuser.UpdateUserRequest{}, err
	}

	name := strings.TrimSpace(f.Name)
	email := strings.TrimSpace(f.Email)
	phone := format.Digits(f.Phone)
	cpf := format.Digits(f.CPF)
	cep := format.UnformatCEP(f.CEP)
	addr := strings.TrimSpace(f.Address)
	complement := strings.TrimSpace(f.Complement)
	typ := f.Type
	consultant := f.consultant()

	return ucuser.UpdateUserRequest{
		ID:           f.UserID,
		Name:         &name,
		Email:        &email,
		Phone:        &phone,
		Age:          age,
		CPF:          &cpf,
		CEP:          &cep,
		Address:      &addr,
		Complement:   &complement,
		Type:         &typ,
		ConsultantID: &consultant,
	}, nil
}
