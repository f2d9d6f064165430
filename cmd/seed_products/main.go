// seed_products genera un script SQL para cargar el catálogo inicial de productos
// a partir de un CSV exportado de hoja de cálculo (separador ';', codificación ISO-8859-1).
//
// Columnas: sku;nombre;descripcion;minimo;stock (la primera fila puede ser encabezado).
//
// Uso: go run ./cmd/seed_products [ruta/productos.csv]
// Por defecto busca productos.csv en el directorio actual.
// Escribe: seeds/products.sql (no forma parte de las migraciones automáticas).
package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

func main() {
	csvPath := "productos.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	products, skipped, err := readProducts(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()), time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	moduleRoot := findModuleRoot()
	outDir := filepath.Join(moduleRoot, "seeds")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Crear directorio: %v\n", err)
		os.Exit(1)
	}
	outPath := filepath.Join(outDir, "products.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	if err := writeSeed(out, filepath.Base(csvPath), products); err != nil {
		out.Close()
		fmt.Fprintf(os.Stderr, "Escribir %s: %v\n", outPath, err)
		os.Exit(1)
	}
	if err := out.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Cerrar %s: %v\n", outPath, err)
		os.Exit(1)
	}

	for _, s := range skipped {
		fmt.Fprintf(os.Stderr, "fila %d omitida: %s\n", s.line, s.reason)
	}
	fmt.Printf("Generado %s: %d productos, %d filas omitidas\n", outPath, len(products), len(skipped))
}

type skippedRow struct {
	line   int
	reason string
}

// readProducts valida cada fila con entity.NewProduct. Un SKU repetido conserva la primera fila.
func readProducts(r io.Reader, now time.Time) ([]*entity.Product, []skippedRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		products []*entity.Product
		skipped  []skippedRow
		seen     = make(map[string]bool)
		line     = 0
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "sku") {
			continue
		}
		if len(rec) < 5 {
			skipped = append(skipped, skippedRow{line, "faltan columnas"})
			continue
		}
		minQty, err1 := strconv.Atoi(strings.TrimSpace(rec[3]))
		qty, err2 := strconv.Atoi(strings.TrimSpace(rec[4]))
		if err1 != nil || err2 != nil {
			skipped = append(skipped, skippedRow{line, "cantidad no entera"})
			continue
		}
		p, err := entity.NewProduct(uuid.New().String(), rec[0], rec[1], rec[2], minQty, qty, now)
		if err != nil {
			skipped = append(skipped, skippedRow{line, err.Error()})
			continue
		}
		if seen[p.SKU] {
			skipped = append(skipped, skippedRow{line, "SKU repetido " + p.SKU})
			continue
		}
		seen[p.SKU] = true
		products = append(products, p)
	}

	// Orden por SKU para salida estable
	sort.Slice(products, func(i, j int) bool { return products[i].SKU < products[j].SKU })
	return products, skipped, nil
}

// writeSeed escribe el script de inserción. bufio conserva el primer error de escritura
// y Flush lo devuelve.
func writeSeed(w io.Writer, source string, products []*entity.Product) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("-- Catálogo inicial de productos\n")
	fmt.Fprintf(bw, "-- Generado desde %s\n", source)
	bw.WriteString("-- Un SKU existente no se modifica: el stock solo cambia con movimientos.\n\n")
	for _, p := range products {
		bw.WriteString("INSERT INTO products (id, sku, name, description, min_quantity, current_quantity, created_at, updated_at)\n")
		fmt.Fprintf(bw, "VALUES ('%s', '%s', '%s', '%s', %d, %d, now(), now())\n",
			p.ID, escapeSQL(p.SKU), escapeSQL(p.Name), escapeSQL(p.Description), p.MinQuantity, p.CurrentQuantity)
		bw.WriteString("ON CONFLICT (sku) DO NOTHING;\n")
	}
	return bw.Flush()
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
