package customer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	resp "github.com/zllovesuki/customers/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// DeletedMessage is returned by delete whether or not a row existed
const DeletedMessage = "Customer deleted successfully"

// Options contains the configuration for Service router
type Options struct {
	CustomerManager *Manager
	Publisher       Publisher
	Logger          *zap.Logger
}

// Service is the customer API router
type Service struct {
	Options
}

// DeleteResponse acknowledges a delete
type DeleteResponse struct {
	Message string `json:"message"`
}

// NewService will create an instance of the customer API router
func NewService(option Options) (*Service, error) {
	if option.CustomerManager == nil {
		return nil, fmt.Errorf("nil CustomerManager is invalid")
	}
	if option.Publisher == nil {
		return nil, fmt.Errorf("nil Publisher is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		Options: option,
	}, nil
}

func (s *Service) publish(ctx context.Context, logger *zap.Logger, e Event) {
	if err := s.Publisher.PublishCustomerEvent(ctx, e); err != nil {
		logger.Error("Unable to publish customer event",
			zap.Error(err),
			zap.String("EventType", string(e.Type)),
		)
	}
}

func decodeRequest(r *http.Request) (*Customer, *resp.Error) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, resp.ErrInvalidJson()
	}
	if err := validate.Struct(&req); err != nil {
		e := resp.ErrUnprocessableEntity()
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				e.AddMessages(fmt.Sprintf("Field %s is required", fe.Field()))
			}
		}
		return nil, e
	}
	cust := req.Customer()
	return &cust, nil
}

func customerID(r *http.Request) (int, *resp.Error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, resp.ErrUnprocessableEntity().AddMessages("Customer id must be an integer")
	}
	return id, nil
}

func (s *Service) createCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cust, reqErr := decodeRequest(r)
	if reqErr != nil {
		resp.WriteError(w, r, reqErr)
		return
	}

	if err := s.CustomerManager.Create(ctx, cust); err != nil {
		s.Logger.Error("Unable to create customer",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to create Customer"))
		return
	}

	logger := s.Logger.With(zap.Int("CustomerID", cust.ID))
	created := *cust
	s.publish(ctx, logger, NewEvent(EventCreated, cust.ID, &created))

	resp.WriteResponse(w, r, cust)
}

func (s *Service) listCustomers(w http.ResponseWriter, r *http.Request) {
	results, err := s.CustomerManager.List(r.Context())
	if err != nil {
		s.Logger.Error("Unable to list customers",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of customers"))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, reqErr := customerID(r)
	if reqErr != nil {
		resp.WriteError(w, r, reqErr)
		return
	}

	logger := s.Logger.With(zap.Int("CustomerID", id))

	cust, err := s.CustomerManager.Get(r.Context(), id)
	if err != nil {
		logger.Error("Unable to query customer",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get details about the customer"))
		return
	}

	if cust == nil {
		resp.WriteError(w, r, resp.ErrNotFound().WithMessage("Customer not found"))
		return
	}

	resp.WriteResponse(w, r, cust)
}

func (s *Service) updateCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, reqErr := customerID(r)
	if reqErr != nil {
		resp.WriteError(w, r, reqErr)
		return
	}

	logger := s.Logger.With(zap.Int("CustomerID", id))

	cust, reqErr := decodeRequest(r)
	if reqErr != nil {
		resp.WriteError(w, r, reqErr)
		return
	}
	cust.ID = id

	affected, err := s.CustomerManager.Update(ctx, id, cust)
	if err != nil {
		logger.Error("Unable to update customer",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to update Customer"))
		return
	}

	// MySQL reports unchanged rows as unaffected, so zero is not treated as missing
	if affected == 0 {
		logger.Debug("Update matched no changed rows")
	} else {
		updated := *cust
		s.publish(ctx, logger, NewEvent(EventUpdated, id, &updated))
	}

	resp.WriteResponse(w, r, cust)
}

func (s *Service) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, reqErr := customerID(r)
	if reqErr != nil {
		resp.WriteError(w, r, reqErr)
		return
	}

	logger := s.Logger.With(zap.Int("CustomerID", id))

	affected, err := s.CustomerManager.Delete(ctx, id)
	if err != nil {
		logger.Error("Unable to delete customer",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to delete Customer"))
		return
	}

	if affected > 0 {
		s.publish(ctx, logger, NewEvent(EventDeleted, id, nil))
	}

	resp.WriteResponse(w, r, DeleteResponse{Message: DeletedMessage})
}

// Router will return the routes under customer API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/", s.createCustomer)
	r.Get("/", s.listCustomers)
	r.Get("/{id}", s.getCustomer)
	r.Put("/{id}", s.updateCustomer)
	r.Delete("/{id}", s.deleteCustomer)

	return r
}
