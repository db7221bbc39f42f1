// Package selector drives the product type → product → run choice used by
// the checkout and bulk purchase forms.
package selector

import (
	"sync"

	"github.com/noah-isme/xpro-storefront/internal/catalog"
	"github.com/noah-isme/xpro-storefront/internal/common"
)

// Field names used in validation errors.
const (
	FieldProductType = "product_type"
	FieldProduct     = "product"
	FieldRun         = "run"
)

// Step reports how far the selection has progressed.
type Step int

const (
	StepNone Step = iota
	StepProductType
	StepProduct
	StepRun
)

func (s Step) String() string {
	switch s {
	case StepNone:
		return "none"
	case StepProductType:
		return "product_type"
	case StepProduct:
		return "product"
	case StepRun:
		return "run"
	default:
		return "unknown"
	}
}

// Selection is the purchasable product id emitted to the parent form.
// OK is false when the selection was cleared.
type Selection struct {
	ProductID int
	OK        bool
}

// Selector holds the transient selection state. Changing a higher level
// field clears everything below it.
type Selector struct {
	products []catalog.Product
	onChange func(Selection)

	mu          sync.Mutex
	productType catalog.ProductType
	product     *catalog.Product
	runID       int
	value       Selection
}

// New builds a selector over the remote product list. onChange may be nil.
func New(products []catalog.Product, onChange func(Selection)) *Selector {
	return &Selector{products: products, onChange: onChange}
}

// Step returns the current step.
func (s *Selector) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.runID != 0:
		return StepRun
	case s.product != nil:
		return StepProduct
	case s.productType != "":
		return StepProductType
	default:
		return StepNone
	}
}

// Value returns the last emitted selection.
func (s *Selector) Value() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// ProductType returns the chosen product type.
func (s *Selector) ProductType() catalog.ProductType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productType
}

// Product returns the chosen product, if any.
func (s *Selector) Product() (catalog.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.product == nil {
		return catalog.Product{}, false
	}
	return *s.product, true
}

// RunID returns the chosen run id, or 0.
func (s *Selector) RunID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Options lists the products of the chosen type.
func (s *Selector) Options() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.ProductType == s.productType {
			out = append(out, p)
		}
	}
	return out
}

// Runs lists the runs available for the chosen course product.
func (s *Selector) Runs() []catalog.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.product == nil {
		return nil
	}
	return runsOf(*s.product)
}

// SelectProductType sets the product type and clears product and run.
func (s *Selector) SelectProductType(t catalog.ProductType) error {
	if !t.Valid() {
		return common.NewFieldError(FieldProductType, "Unknown product type")
	}
	s.mu.Lock()
	s.productType = t
	s.product = nil
	s.runID = 0
	s.mu.Unlock()
	s.emit(Selection{})
	return nil
}

// SelectProduct chooses a product of the current type and clears the run.
// Programs are purchased directly. A course with a single run selects it.
func (s *Selector) SelectProduct(productID int) error {
	s.mu.Lock()
	if s.productType == "" {
		s.mu.Unlock()
		return common.NewFieldError(FieldProductType, "Select a product type first")
	}
	var found *catalog.Product
	for i := range s.products {
		p := s.products[i]
		if p.ID == productID && p.ProductType == s.productType {
			found = &p
			break
		}
	}
	if found == nil {
		s.mu.Unlock()
		return common.NewFieldError(FieldProduct, "Unknown product")
	}
	s.product = found
	s.runID = 0

	next := Selection{}
	if found.ProductType == catalog.ProductTypeProgram {
		next = Selection{ProductID: found.ID, OK: true}
	} else if runs := runsOf(*found); len(runs) == 1 {
		s.runID = runs[0].ID
		next = Selection{ProductID: runs[0].ProductID, OK: true}
	}
	s.mu.Unlock()
	s.emit(next)
	return nil
}

// SelectRun chooses a run of the current course and emits the run's own
// product id, since purchases are bound to a specific run.
func (s *Selector) SelectRun(runID int) error {
	s.mu.Lock()
	if s.product == nil || s.product.ProductType != catalog.ProductTypeCourseRun {
		s.mu.Unlock()
		return common.NewFieldError(FieldProduct, "Select a course first")
	}
	var run *catalog.Run
	for _, r := range runsOf(*s.product) {
		if r.ID == runID {
			r := r
			run = &r
			break
		}
	}
	if run == nil {
		s.mu.Unlock()
		return common.NewFieldError(FieldRun, "Unknown run")
	}
	s.runID = run.ID
	s.mu.Unlock()
	s.emit(Selection{ProductID: run.ProductID, OK: true})
	return nil
}

// Reset returns the selector to its initial state.
func (s *Selector) Reset() {
	s.mu.Lock()
	s.productType = ""
	s.product = nil
	s.runID = 0
	s.mu.Unlock()
	s.emit(Selection{})
}

func (s *Selector) emit(sel Selection) {
	s.mu.Lock()
	s.value = sel
	cb := s.onChange
	s.mu.Unlock()
	if cb != nil {
		cb(sel)
	}
}

func runsOf(p catalog.Product) []catalog.Run {
	var runs []catalog.Run
	for _, c := range p.LatestVersion.Courses {
		runs = append(runs, c.Runs...)
	}
	return runs
}
