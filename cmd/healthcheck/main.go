// main.go
//
// A real-time retrospective board service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of retroboard.
// retroboard is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// retroboard is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with retroboard.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/localnerve/retroboard/internal/config"
	"github.com/localnerve/retroboard/internal/services"
	"github.com/localnerve/retroboard/internal/store"
	"github.com/localnerve/retroboard/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The API must accept connections before the store is worth checking
	apiURL := fmt.Sprintf("http://localhost:%s", cfg.Port)
	if err := utils.PingAPI(apiURL); err != nil {
		report(services.HealthCheckResult{
			Status:       "unhealthy",
			ErrorMessage: fmt.Sprintf("API ping failed: %v", err),
		})
	}

	st, _, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.DBType, err)
	}
	defer st.Close()

	// Perform health check
	svc := services.New(st, nil, nil)
	report(svc.HealthCheck(context.Background(), cfg.DBType, cfg.DBDatabase))
}

// report prints result as JSON and exits 0 when healthy, 1 otherwise
func report(result services.HealthCheckResult) {
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal health check result: %v", err)
	}

	fmt.Println(string(output))

	if result.Status != "healthy" {
		os.Exit(1)
	}
	os.Exit(0)
}
