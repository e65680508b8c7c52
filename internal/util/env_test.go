package util

import (
	"slices"
	"testing"
	"time"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SG_TEST_STRING", "neo4j")
	t.Setenv("SG_TEST_FLOAT", "1e-12")
	t.Setenv("SG_TEST_INT", " 64 ")
	t.Setenv("SG_TEST_BAD_INT", "sixty-four")
	t.Setenv("SG_TEST_BOOL", "true")
	t.Setenv("SG_TEST_BAD_BOOL", "yes")
	t.Setenv("SG_TEST_DURATION", "2s")
	t.Setenv("SG_TEST_LIST", "http://a, ,http://b")

	if got := GetEnvString("SG_TEST_STRING", "postgres"); got != "neo4j" {
		t.Errorf("GetEnvString = %q", got)
	}
	if got := GetEnvString("SG_TEST_MISSING", "postgres"); got != "postgres" {
		t.Errorf("GetEnvString default = %q", got)
	}
	if got := GetEnvNumeric("SG_TEST_FLOAT", 1e-9); got != 1e-12 {
		t.Errorf("GetEnvNumeric = %g", got)
	}
	if got := GetEnvInt("SG_TEST_INT", 10); got != 64 {
		t.Errorf("GetEnvInt = %d", got)
	}
	if got := GetEnvInt("SG_TEST_BAD_INT", 10); got != 10 {
		t.Errorf("GetEnvInt invalid = %d", got)
	}
	if got := GetEnvBool("SG_TEST_BOOL", false); !got {
		t.Error("GetEnvBool = false")
	}
	if got := GetEnvBool("SG_TEST_BAD_BOOL", false); got {
		t.Error("GetEnvBool accepted \"yes\"")
	}
	if got := GetEnvDuration("SG_TEST_DURATION", time.Second); got != 2*time.Second {
		t.Errorf("GetEnvDuration = %s", got)
	}
	if got := GetEnvList("SG_TEST_LIST", nil); !slices.Equal(got, []string{"http://a", "http://b"}) {
		t.Errorf("GetEnvList = %v", got)
	}
	if got := GetEnv("SG_TEST_MISSING"); got != "" {
		t.Errorf("GetEnv = %q", got)
	}
}
