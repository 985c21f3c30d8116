package service

import (
	"errors"
	"strings"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/config"
	"github.com/cubaneorg/cubane-sub000/internal/logger"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// CustomerService covers the thin identity surface checkout needs:
// register, login and token verification. Guest checkout bypasses it
// entirely.
type CustomerService struct {
	customerRepo repository.CustomerRepository
	jwtCfg       config.JWTConfig
}

// NewCustomerService creates the customer service.
func NewCustomerService(customerRepo repository.CustomerRepository, jwtCfg config.JWTConfig) *CustomerService {
	return &CustomerService{customerRepo: customerRepo, jwtCfg: jwtCfg}
}

// CustomerClaims is the customer token payload.
type CustomerClaims struct {
	CustomerID uint   `json:"customer_id"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// RegisterInput holds a new customer's details.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Telephone string
}

// Register creates a customer account.
func (s *CustomerService) Register(input RegisterInput) (*models.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}
	existing, err := s.customerRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCustomerExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	customer := &models.Customer{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Telephone:    input.Telephone,
	}
	if err := s.customerRepo.Create(customer); err != nil {
		return nil, err
	}
	logger.Infow("customer_registered", "customer_id", customer.ID)
	return customer, nil
}

// Login verifies the credentials and issues a token.
func (s *CustomerService) Login(email, password string) (*models.Customer, string, time.Time, error) {
	customer, err := s.customerRepo.GetByEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if customer == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.generateToken(customer)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return customer, token, expiresAt, nil
}

// GetByID fetches a customer account.
func (s *CustomerService) GetByID(id uint) (*models.Customer, error) {
	return s.customerRepo.GetByID(id)
}

func (s *CustomerService) generateToken(customer *models.Customer) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(s.jwtCfg.ExpireHours) * time.Hour)
	claims := CustomerClaims{
		CustomerID: customer.ID,
		Email:      customer.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtCfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates a customer token and returns its claims.
func (s *CustomerService) ParseToken(tokenString string) (*CustomerClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &CustomerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtCfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*CustomerClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
