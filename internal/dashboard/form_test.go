package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consultant-dashboard/internal/domain/address"
	ucuser "consultant-dashboard/internal/usecase/user"
	apperrors "consultant-dashboard/pkg/errors"
)

const consultantUUID = "6f1c2d7e-2b9a-4c1e-9a57-0b2b8f1e4d10"

func filledForm() Form {
	f := NewForm("form-1")
	f.Name = " Maria Clara "
	f.Email = "maria@example.com"
	f.Phone = "(21) 91234-0002"
	f.CPF = "111.444.777-35"
	f.CEP = "01310-100"
	f.Address = "Avenida Paulista"
	f.Age = "29"
	f.ConsultantID = consultantUUID
	return f
}

func TestNewForm(t *testing.T) {
	f := NewForm("form-1")
	assert.Equal(t, "form-1", f.FormID)
	assert.Equal(t, "CLIENT", f.Type)
	assert.Equal(t, NoConsultant, f.ConsultantID)
	assert.False(t, f.IsEdit())
	assert.True(t, f.ShowsConsultant())
}

func TestForm_Mask(t *testing.T) {
	f := Form{CPF: "11144477735999", Phone: "21912340002", CEP: "01310100"}
	f.Mask()

	assert.Equal(t, "111.444.777-35", f.CPF)
	assert.Equal(t, "(21) 91234-0002", f.Phone)
	assert.Equal(t, "01310-100", f.CEP)

	f.Mask()
	assert.Equal(t, "111.444.777-35", f.CPF, "masking is idempotent")
}

func TestForm_CEPComplete(t *testing.T) {
	tests := []struct {
		cep  string
		want bool
	}{
		{"01310-100", true},
		{"01310100", true},
		{"01310-10", false},
		{"", false},
		{"013101000", false},
	}
	for _, tt := range tests {
		f := Form{CEP: tt.cep}
		assert.Equal(t, tt.want, f.CEPComplete(), tt.cep)
	}
}

func TestForm_ApplyAddress(t *testing.T) {
	t.Run("fills street and complement", func(t *testing.T) {
		f := Form{}
		f.ApplyAddress(&address.Address{Street: "Avenida Paulista", Complement: "de 612 a 1510 - lado par"})
		assert.Equal(t, "Avenida Paulista", f.Address)
		assert.Equal(t, "de 612 a 1510 - lado par", f.Complement)
	})

	t.Run("blank values keep typed input", func(t *testing.T) {
		f := Form{Address: "Rua digitada", Complement: "Apto 12"}
		f.ApplyAddress(&address.Address{Street: "", Complement: ""})
		assert.Equal(t, "Rua digitada", f.Address)
		assert.Equal(t, "Apto 12", f.Complement)
	})

	t.Run("nil result", func(t *testing.T) {
		f := Form{Address: "Rua digitada"}
		f.ApplyAddress(nil)
		assert.Equal(t, "Rua digitada", f.Address)
	})
}

func TestFormFromUser(t *testing.T) {
	age := 41
	complement := "Sala 3"
	cid := consultantUUID
	u := ucuser.User{
		ID: "u-1", Name: "João", Email: "joao@example.com", Phone: "11987650001",
		CPF: "52998224725", CEP: "01310100", Address: "Rua A", Complement: &complement,
		Age: &age, Type: "CLIENT", ConsultantID: &cid,
	}

	f := FormFromUser("form-9", u)
	assert.True(t, f.IsEdit())
	assert.Equal(t, "u-1", f.UserID)
	assert.Equal(t, "529.982.247-25", f.CPF)
	assert.Equal(t, "(11) 98765-0001", f.Phone)
	assert.Equal(t, "01310-100", f.CEP)
	assert.Equal(t, "Sala 3", f.Complement)
	assert.Equal(t, "41", f.Age)
	assert.Equal(t, consultantUUID, f.ConsultantID)

	standalone := FormFromUser("form-9", ucuser.User{ID: "u-2", Type: "CLIENT"})
	assert.Equal(t, NoConsultant, standalone.ConsultantID)
	assert.Empty(t, standalone.Age)
}

func TestForm_CreateRequest(t *testing.T) {
	f := filledForm()

	req, err := f.CreateRequest()
	require.NoError(t, err)
	assert.Equal(t, "Maria Clara", req.Name)
	assert.Equal(t, "21912340002", req.Phone)
	assert.Equal(t, "11144477735", req.CPF)
	assert.Equal(t, "01310100", req.CEP)
	require.NotNil(t, req.Age)
	assert.Equal(t, 29, *req.Age)
	assert.Nil(t, req.Complement, "blank complement is omitted")
	require.NotNil(t, req.ConsultantID)
	assert.Equal(t, consultantUUID, *req.ConsultantID)
}

func TestForm_CreateRequest_Consultant(t *testing.T) {
	f := filledForm()
	f.Type = "CONSULTANT"
	f.Age = ""

	req, err := f.CreateRequest()
	require.NoError(t, err)
	assert.Nil(t, req.ConsultantID, "consultants are never linked")
	assert.Nil(t, req.Age)
}

func TestForm_CreateRequest_StandaloneClient(t *testing.T) {
	f := filledForm()
	f.ConsultantID = NoConsultant

	req, err := f.CreateRequest()
	require.NoError(t, err)
	assert.Nil(t, req.ConsultantID)
}

func TestForm_CreateRequest_BadAge(t *testing.T) {
	f := filledForm()
	f.Age = "abc"

	_, err := f.CreateRequest()
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Age", verr.Field)
}

func TestForm_UpdateRequest(t *testing.T) {
	f := filledForm()
	f.UserID = "4a1c0d7e-2b9a-4c1e-9a57-0b2b8f1e4d99"
	f.ConsultantID = NoConsultant

	req, err := f.UpdateRequest()
	require.NoError(t, err)
	assert.Equal(t, f.UserID, req.ID)
	require.NotNil(t, req.Name)
	assert.Equal(t, "Maria Clara", *req.Name)
	require.NotNil(t, req.CPF)
	assert.Equal(t, "11144477735", *req.CPF)
	require.NotNil(t, req.ConsultantID)
	assert.Empty(t, *req.ConsultantID, "empty consultant clears the link")
	require.NotNil(t, req.Complement)
	assert.Empty(t, *req.Complement)
}
