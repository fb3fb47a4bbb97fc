package main

import (
	"bytes"
	"testing"

	"github.com/J-Naish/amazon-scraper/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPrintProducts(t *testing.T) {
	var buf bytes.Buffer
	printProducts(&buf, []models.Product{
		{Title: "薬用美白化粧水 200ml"},
		{Title: ""},
	})

	assert.Equal(t, "Found 2 sponsored products\n1. 薬用美白化粧水 200ml\n2. \n", buf.String())
}

func TestPrintProducts_Empty(t *testing.T) {
	var buf bytes.Buffer
	printProducts(&buf, []models.Product{})

	assert.Equal(t, "Found 0 sponsored products\n", buf.String())
}
