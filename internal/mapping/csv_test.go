package mapping

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `base_symbol,binance,coinbase,kraken
BTC,BTC/USDT,BTC/USD,BTC/USD
ETH, ETH/USDT ,ETH/USD,
DOGE,DOGE/USDT
`

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	assets := m.Assets()
	if len(assets) != 3 || assets[0] != "BTC" || assets[2] != "DOGE" {
		t.Fatalf("Assets = %v", assets)
	}
	ex := m.Exchanges()
	if len(ex) != 3 || ex[0] != "binance" || ex[2] != "kraken" {
		t.Fatalf("Exchanges = %v", ex)
	}
	if p, ok := m.Pair("ETH", "binance"); !ok || p != "ETH/USDT" {
		t.Fatalf("Pair(ETH, binance) = %q, %v", p, ok)
	}
	if _, ok := m.Pair("ETH", "kraken"); ok {
		t.Fatal("empty cell should be unlisted")
	}
	if _, ok := m.Pair("DOGE", "coinbase"); ok {
		t.Fatal("short row should leave trailing exchanges unlisted")
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"wrong header":   "symbol,binance\nBTC,BTC/USDT\n",
		"no exchanges":   "base_symbol\nBTC\n",
		"duplicate":      "base_symbol,binance\nBTC,BTC/USDT\nBTC,BTC/USDC\n",
		"too many cells": "base_symbol,binance\nBTC,BTC/USDT,extra\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crypto_mapping.csv")
	if err := os.WriteFile(path, []byte("\ufeff"+sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if m.Len() != 3 {
		t.Fatalf("Len = %d, want 3", m.Len())
	}

	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
