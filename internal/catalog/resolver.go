package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garasipos/garasipos/internal/catalog/packages"
	"github.com/garasipos/garasipos/internal/catalog/products"
	"github.com/garasipos/garasipos/internal/catalog/services"
	"github.com/garasipos/garasipos/internal/shared"
)

// ProductSource loads non-deleted products.
type ProductSource interface {
	Get(ctx context.Context, id int64) (products.Product, error)
}

// ServiceSource loads non-deleted labor items.
type ServiceSource interface {
	Get(ctx context.Context, id int64) (services.Service, error)
}

// PackageSource loads non-deleted packages with their items.
type PackageSource interface {
	Get(ctx context.Context, id int64) (packages.Package, error)
}

// Resolver turns line requests into priced, cost-snapshotted lines. All stock
// checks here are advisory; the sale's unit of work re-checks under row locks.
type Resolver struct {
	products ProductSource
	services ServiceSource
	packages PackageSource
	cache    *Cache
}

// NewResolver constructs Resolver. cache may be nil.
func NewResolver(productSrc ProductSource, serviceSrc ServiceSource, packageSrc PackageSource, cache *Cache) *Resolver {
	return &Resolver{products: productSrc, services: serviceSrc, packages: packageSrc, cache: cache}
}

func (r *Resolver) getProduct(ctx context.Context, id int64) (products.Product, error) {
	return r.cache.GetProduct(ctx, id, r.products.Get)
}

func (r *Resolver) getPackage(ctx context.Context, id int64) (packages.Package, error) {
	return r.cache.GetPackage(ctx, id, r.packages.Get)
}

// ResolveLine prices one requested line by type-driven dispatch. The returned
// snapshot freezes base/sell/cost prices at the instant of resolution.
func (r *Resolver) ResolveLine(ctx context.Context, req LineRequest) (ResolvedLine, error) {
	if req.Qty <= 0 {
		return ResolvedLine{}, fmt.Errorf("%w: qty must be positive", shared.ErrValidation)
	}
	if req.UnitDiscount < 0 {
		return ResolvedLine{}, fmt.Errorf("%w: discount must not be negative", shared.ErrInvalidDiscount)
	}

	line := ResolvedLine{
		Type:           req.Type,
		RefID:          req.RefID,
		Qty:            req.Qty,
		DiscountAmount: shared.Round2(req.UnitDiscount),
	}

	switch req.Type {
	case LineProduct:
		p, err := r.getProduct(ctx, req.RefID)
		if err != nil {
			return ResolvedLine{}, fmt.Errorf("product %d: %w", req.RefID, err)
		}
		if p.Stock < req.Qty {
			return ResolvedLine{}, fmt.Errorf("%w: %s has %d, requested %d", shared.ErrInsufficientStock, p.SKU, p.Stock, req.Qty)
		}
		line.Name = p.Name
		line.BasePrice = p.PriceSell
		line.CostPrice = p.PriceBuy
		line.Components = []ComponentRequirement{{ProductID: p.ID, Qty: req.Qty}}

	case LineService:
		svc, err := r.services.Get(ctx, req.RefID)
		if err != nil {
			return ResolvedLine{}, fmt.Errorf("service %d: %w", req.RefID, err)
		}
		line.Name = svc.Name
		line.BasePrice = svc.Price
		line.CostPrice = 0

	case LinePackage:
		pkg, comps, unitCost, err := r.expand(ctx, req.RefID, req.Qty)
		if err != nil {
			return ResolvedLine{}, err
		}
		line.Name = pkg.Name
		line.BasePrice = pkg.Price
		line.CostPrice = unitCost
		line.Components = comps

	case LineExternal:
		if strings.TrimSpace(req.ItemName) == "" || strings.TrimSpace(req.VendorName) == "" {
			return ResolvedLine{}, fmt.Errorf("%w: external line requires item_name and vendor_name", shared.ErrValidation)
		}
		if req.BasePrice < 0 {
			return ResolvedLine{}, fmt.Errorf("%w: external base_price must not be negative", shared.ErrValidation)
		}
		line.Name = req.ItemName
		line.BasePrice = req.BasePrice
		line.CostPrice = 0
		line.VendorName = req.VendorName

	default:
		return ResolvedLine{}, fmt.Errorf("%w: unknown line type %q", shared.ErrValidation, req.Type)
	}

	line.BasePrice = shared.Round2(line.BasePrice)
	line.CostPrice = shared.Round2(line.CostPrice)
	sell := line.BasePrice - line.DiscountAmount
	if sell < 0 {
		return ResolvedLine{}, fmt.Errorf("%w: discount %.2f exceeds price %.2f", shared.ErrInvalidDiscount, line.DiscountAmount, line.BasePrice)
	}
	line.SellPrice = shared.Round2(sell)
	return line, nil
}

// Expand flattens a package into product stock requirements at the given
// multiplier. Service components carry no stock impact and are skipped.
func (r *Resolver) Expand(ctx context.Context, packageID int64, multiplier int) ([]ComponentRequirement, error) {
	_, comps, _, err := r.expand(ctx, packageID, multiplier)
	return comps, err
}

// CheckAvailability reports whether every product component has enough stock at
// the requested multiplier. A soft-deleted component makes the package
// unavailable with reason DELETED_COMPONENT. Read-only and advisory.
func (r *Resolver) CheckAvailability(ctx context.Context, packageID int64, multiplier int) (Availability, error) {
	pkg, err := r.getPackage(ctx, packageID)
	if err != nil {
		return Availability{}, fmt.Errorf("package %d: %w", packageID, err)
	}
	if !pkg.IsActive {
		return Availability{}, fmt.Errorf("%w: package %d is inactive", shared.ErrNotFound, packageID)
	}
	if multiplier <= 0 {
		multiplier = 1
	}
	for _, item := range pkg.Items {
		if item.ProductID == nil {
			continue
		}
		p, err := r.getProduct(ctx, *item.ProductID)
		if err != nil {
			if isNotFound(err) {
				return Availability{Available: false, Reason: ReasonDeletedComponent, ProductID: *item.ProductID}, nil
			}
			return Availability{}, err
		}
		if p.Stock < item.Qty*multiplier {
			return Availability{Available: false, Reason: ReasonInsufficientStock, ProductID: p.ID}, nil
		}
	}
	return Availability{Available: true}, nil
}

// expand loads the package, verifies availability, and returns the flattened
// requirements plus the per-unit cost basis (sum of component qty x buy cost).
func (r *Resolver) expand(ctx context.Context, packageID int64, multiplier int) (packages.Package, []ComponentRequirement, float64, error) {
	pkg, err := r.getPackage(ctx, packageID)
	if err != nil {
		return packages.Package{}, nil, 0, fmt.Errorf("package %d: %w", packageID, err)
	}
	if !pkg.IsActive {
		return packages.Package{}, nil, 0, fmt.Errorf("%w: package %d is inactive", shared.ErrNotFound, packageID)
	}

	comps := []ComponentRequirement{}
	var unitCost float64
	for _, item := range pkg.Items {
		if item.ProductID == nil {
			continue
		}
		p, err := r.getProduct(ctx, *item.ProductID)
		if err != nil {
			if isNotFound(err) {
				return packages.Package{}, nil, 0, fmt.Errorf("%w: package %d component product %d deleted", shared.ErrNotFound, packageID, *item.ProductID)
			}
			return packages.Package{}, nil, 0, err
		}
		required := item.Qty * multiplier
		if p.Stock < required {
			return packages.Package{}, nil, 0, fmt.Errorf("%w: %s has %d, package needs %d", shared.ErrInsufficientStock, p.SKU, p.Stock, required)
		}
		comps = append(comps, ComponentRequirement{ProductID: p.ID, Qty: required})
		unitCost += float64(item.Qty) * p.PriceBuy
	}
	return pkg, comps, shared.Round2(unitCost), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
