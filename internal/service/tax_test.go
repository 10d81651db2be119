package service

import (
	"testing"

	"github.com/billix/billix/internal/domain/tax"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type TaxServiceSuite struct {
	testutil.BaseServiceTestSuite
	service TaxService
}

func TestTaxService(t *testing.T) {
	suite.Run(t, new(TaxServiceSuite))
}

func (s *TaxServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewTaxService(newServiceParams(&s.BaseServiceTestSuite))
}

func (s *TaxServiceSuite) createTax(code string, rate int64) *tax.Tax {
	t := &tax.Tax{
		Name: "VAT",
		Code: code,
		Rate: decimal.NewFromInt(rate),
	}
	s.Require().NoError(s.service.CreateTax(s.GetContext(), t))
	return t
}

func (s *TaxServiceSuite) TestCreateTaxValidation() {
	err := s.service.CreateTax(s.GetContext(), &tax.Tax{Name: "VAT", Rate: decimal.NewFromInt(20)})
	s.True(ierr.IsValidation(err))

	err = s.service.CreateTax(s.GetContext(), &tax.Tax{Code: "vat", Rate: decimal.NewFromInt(120)})
	s.True(ierr.IsValidation(err))
}

func (s *TaxServiceSuite) TestCreateTaxDuplicateCode() {
	s.createTax("vat_std", 20)

	err := s.service.CreateTax(s.GetContext(), &tax.Tax{Code: "vat_std", Rate: decimal.NewFromInt(5)})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *TaxServiceSuite) TestApplyTax() {
	t := s.createTax("vat_std", 20)

	at, err := s.service.ApplyTax(s.GetContext(), t.ID, types.TaxableTypeCustomer, "cust-1")
	s.NoError(err)
	s.Equal(t.ID, at.TaxID)

	applied, err := s.service.ListApplied(s.GetContext(), types.TaxableTypeCustomer, "cust-1")
	s.NoError(err)
	s.Require().Len(applied, 1)

	s.NoError(s.service.RemoveAppliedTax(s.GetContext(), at.ID))
	applied, err = s.service.ListApplied(s.GetContext(), types.TaxableTypeCustomer, "cust-1")
	s.NoError(err)
	s.Empty(applied)
}

func (s *TaxServiceSuite) TestApplyUnknownTax() {
	_, err := s.service.ApplyTax(s.GetContext(), "tax-missing", types.TaxableTypeTenant, types.DefaultTenantID)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
