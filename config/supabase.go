package config

import (
	"os"

	supa "github.com/supabase-community/supabase-go"
)

var SupabaseClient *supa.Client

// InitSupabase initializes the Supabase client from SUPABASE_URL and
// SUPABASE_SERVICE_KEY. Returns false when the environment is not
// configured; the service then runs without the export archive.
func InitSupabase() (bool, error) {
	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_KEY")
	if supabaseURL == "" || supabaseKey == "" {
		return false, nil
	}

	client, err := supa.NewClient(supabaseURL, supabaseKey, nil)
	if err != nil {
		return false, err
	}
	SupabaseClient = client
	return true, nil
}

// GetSupabaseURL returns the configured Supabase project URL.
func GetSupabaseURL() string {
	return os.Getenv("SUPABASE_URL")
}
