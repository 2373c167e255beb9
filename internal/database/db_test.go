package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.Config{
		DBUser: "bus",
		DBPass: "p@ss:word",
		DBHost: "db.internal",
		DBPort: "3306",
		DBName: "booking",
	})

	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if mc.User != "bus" || mc.Passwd != "p@ss:word" {
		t.Fatalf("credentials = %q/%q", mc.User, mc.Passwd)
	}
	if mc.Addr != "db.internal:3306" || mc.DBName != "booking" {
		t.Fatalf("addr/db = %q/%q", mc.Addr, mc.DBName)
	}
	if !mc.ParseTime || mc.Loc != time.UTC {
		t.Fatalf("parseTime=%v loc=%v, want true/UTC", mc.ParseTime, mc.Loc)
	}
}

func TestDSNWithoutPassword(t *testing.T) {
	mc, err := mysql.ParseDSN(DSN(config.Config{DBUser: "root", DBHost: "localhost", DBPort: "3306", DBName: "x"}))
	if err != nil {
		t.Fatal(err)
	}
	if mc.Passwd != "" {
		t.Fatalf("Passwd = %q, want empty", mc.Passwd)
	}
}
