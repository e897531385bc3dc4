package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mivine/essentials-backend-go/middleware"
	"github.com/mivine/essentials-backend-go/repository"
	"github.com/mivine/essentials-backend-go/services"
)

// productFilter reads the catalog query string. List values are comma
// separated (?size=S,M).
func productFilter(c echo.Context) (repository.ProductFilter, error) {
	var (
		f                                repository.ProductFilter
		sizes, colors, brands, materials string
		sortBy                           string
		minPrice, maxPrice               float64
	)
	err := echo.QueryParamsBinder(c).
		String("collection", &f.Collection).
		String("category", &f.Category).
		String("gender", &f.Gender).
		String("search", &f.Search).
		String("size", &sizes).
		String("color", &colors).
		String("brand", &brands).
		String("material", &materials).
		String("sortBy", &sortBy).
		Float64("minPrice", &minPrice).
		Float64("maxPrice", &maxPrice).
		Int64("limit", &f.Limit).
		BindError()
	if err != nil {
		return f, err
	}

	f.Sizes = splitList(sizes)
	f.Colors = splitList(colors)
	f.Brands = splitList(brands)
	f.Materials = splitList(materials)
	f.Sort = repository.ProductSort(sortBy)
	if c.QueryParam("minPrice") != "" {
		f.MinPrice = &minPrice
	}
	if c.QueryParam("maxPrice") != "" {
		f.MaxPrice = &maxPrice
	}
	return f, nil
}

func splitList(raw string) []string {
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func (h *Handler) GetProducts(c echo.Context) error {
	filter, err := productFilter(c)
	if err != nil {
		return message(c, http.StatusBadRequest, "Invalid query parameters")
	}

	products, err := h.products.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Product not found")
	}

	product, err := h.products.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *Handler) GetBestSeller(c echo.Context) error {
	product, err := h.products.BestSeller(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *Handler) GetNewArrivals(c echo.Context) error {
	products, err := h.products.NewArrivals(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *Handler) GetSimilarProducts(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Product not found")
	}

	products, err := h.products.Similar(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *Handler) CreateProduct(c echo.Context) error {
	var in services.ProductInput
	if err := c.Bind(&in); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}

	admin := middleware.CurrentUser(c)
	product, err := h.products.Create(c.Request().Context(), admin.ID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Product not found")
	}
	var in services.ProductInput
	if err := c.Bind(&in); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}

	product, err := h.products.Update(c.Request().Context(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Product not found")
	}
	if err := h.products.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return message(c, http.StatusOK, "Product removed")
}

func (h *Handler) GetAdminProducts(c echo.Context) error {
	products, err := h.products.ListAll(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}
