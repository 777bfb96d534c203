package main

import (
	custodyService "lifeconnect/internal/custody/service"
	custodyMemory "lifeconnect/internal/custody/store/memory"
	custodyPostgres "lifeconnect/internal/custody/store/postgres"
	donorService "lifeconnect/internal/donor/service"
	donorMemory "lifeconnect/internal/donor/store/memory"
	donorPostgres "lifeconnect/internal/donor/store/postgres"
	organService "lifeconnect/internal/organ/service"
	organMemory "lifeconnect/internal/organ/store/memory"
	organPostgres "lifeconnect/internal/organ/store/postgres"
	recipientService "lifeconnect/internal/recipient/service"
	recipientMemory "lifeconnect/internal/recipient/store/memory"
	recipientPostgres "lifeconnect/internal/recipient/store/postgres"
	"lifeconnect/internal/platform/postgres"
)

type stores struct {
	donors     donorService.Store
	recipients recipientService.Store
	organs     organService.Store
	custody    custodyService.Store
}

// newStores picks Postgres when a database is configured and in-memory stores otherwise.
func newStores(db *postgres.DB) stores {
	if db == nil {
		return stores{
			donors:     donorMemory.New(),
			recipients: recipientMemory.New(),
			organs:     organMemory.New(),
			custody:    custodyMemory.New(),
		}
	}
	return stores{
		donors:     donorPostgres.New(db),
		recipients: recipientPostgres.New(db),
		organs:     organPostgres.New(db),
		custody:    custodyPostgres.New(db),
	}
}
