package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/repository"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
	"github.com/sangkips/quoteflow-api/pkg/pagination"
)

// CustomerService handles customer-related operations
type CustomerService struct {
	customerRepo repository.CustomerRepository
}

// NewCustomerService creates a new customer service
func NewCustomerService(customerRepo repository.CustomerRepository) *CustomerService {
	return &CustomerService{customerRepo: customerRepo}
}

// CreateCustomerInput represents the create customer input
type CreateCustomerInput struct {
	Name    string
	Email   *string
	Phone   *string
	Address *string
}

// CreateCustomer creates a new customer
func (s *CustomerService) CreateCustomer(ctx context.Context, input *CreateCustomerInput) (*entity.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.NewFieldValidationError("name", "is required")
	}

	customer := &entity.Customer{
		Name:    name,
		Email:   input.Email,
		Phone:   input.Phone,
		Address: input.Address,
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return customer, nil
}

// GetCustomer retrieves a customer by ID
func (s *CustomerService) GetCustomer(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if customer == nil {
		return nil, apperror.NewNotFoundError("Customer")
	}
	return customer, nil
}

// ListCustomers lists customers matching search
func (s *CustomerService) ListCustomers(ctx context.Context, params *pagination.PaginationParams, search string) (*pagination.PaginatedResult[entity.Customer], error) {
	if params == nil {
		params = pagination.DefaultPagination()
	}
	params.Validate()

	customers, total, err := s.customerRepo.List(ctx, params, search)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(customers, pag), nil
}
