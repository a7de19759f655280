package catalogapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/catalog"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// productRequest is the writable part of a product.
type productRequest struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Price         int64  `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
	Active        *bool  `json:"active"`
}

func (p productRequest) product() *catalog.Product {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	return &catalog.Product{
		SKU:           p.SKU,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Active:        active,
	}
}

const maxBodyBytes = 1 << 20

func decodeProduct(w http.ResponseWriter, r *http.Request) (productRequest, error) {
	var req productRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	return req, nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid product id", errBadRequest)
	}
	return id, nil
}

// gateway runs fn against the request tenant's catalog.
func (a *API) gateway(r *http.Request, fn func(*catalog.Gateway) error) error {
	return catalog.With(r.Context(), a.router, tenant.FromRequest(r), fn)
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	f, p, err := listParams(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var (
		items []*catalog.Product
		total int64
	)
	err = a.gateway(r, func(g *catalog.Gateway) error {
		var err error
		if items, err = g.List(r.Context(), f, p); err != nil {
			return err
		}
		total, err = g.Count(r.Context(), f)
		return err
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Data: items,
		Meta: map[string]any{"total": total, "offset": p.Offset, "limit": p.Limit},
	})
}

func listParams(r *http.Request) (catalog.Filter, catalog.Page, error) {
	q := r.URL.Query()
	f := catalog.Filter{Category: q.Get("category"), Search: q.Get("q")}
	var p catalog.Page

	if v := q.Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, p, fmt.Errorf("%w: active must be a boolean", errBadRequest)
		}
		f.Active = &b
	}
	for name, dst := range map[string]*int{"offset": &p.Offset, "limit": &p.Limit} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, p, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
		}
		*dst = n
	}
	if p.Limit == 0 {
		p.Limit = catalog.DefaultPageLimit
	}
	p.Limit = min(p.Limit, catalog.MaxPageLimit)
	return f, p, nil
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	req, err := decodeProduct(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var created *catalog.Product
	err = a.gateway(r, func(g *catalog.Gateway) error {
		created, err = g.Add(r.Context(), req.product())
		return err
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/products/"+created.ID.String())
	writeJSON(w, http.StatusCreated, envelope{Data: created})
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var p *catalog.Product
	err = a.gateway(r, func(g *catalog.Gateway) error {
		p, err = g.Get(r.Context(), id)
		return err
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: p})
}

func (a *API) getProductBySKU(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")

	var p *catalog.Product
	err := a.gateway(r, func(g *catalog.Gateway) error {
		var err error
		p, err = g.GetBySKU(r.Context(), sku)
		return err
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: p})
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	req, err := decodeProduct(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var updated *catalog.Product
	err = a.gateway(r, func(g *catalog.Gateway) error {
		p := req.product()
		p.ID = id
		updated, err = g.Update(r.Context(), p)
		return err
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: updated})
}

func (a *API) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	err = a.gateway(r, func(g *catalog.Gateway) error {
		return g.Delete(r.Context(), id)
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
