package steps

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/domain/entity"
	"github.com/propertyledger/backend/internal/integration/persistence"
	"github.com/propertyledger/backend/internal/integration/persistence/model"
)

// registerLedgerSteps registers property, entry and statistics steps.
func registerLedgerSteps(ctx *godog.ScenarioContext) {
	ctx.Step(`^"([^"]*)" owns property "([^"]*)"$`, ownsProperty)
	ctx.Step(`^I record an? (income|expense|deposit|withdrawal) of "([^"]*)" on "([^"]*)" for property "([^"]*)" as "([^"]*)"$`, iRecordAnEntry)
	ctx.Step(`^I record an? (income|expense|deposit|withdrawal) of "([^"]*)" on "([^"]*)" booked on "([^"]*)" for property "([^"]*)" as "([^"]*)"$`, iRecordAnEntryBookedOn)
	ctx.Step(`^I record an? (income|expense|deposit|withdrawal) split of "([^"]*)" under "([^"]*)" as "([^"]*)"$`, iRecordASplit)
	ctx.Step(`^I accept entry "([^"]*)"$`, iAcceptEntry)
	ctx.Step(`^I accept entries "([^"]*)"$`, iAcceptEntries)
	ctx.Step(`^I change the amount of entry "([^"]*)" to "([^"]*)"$`, iChangeTheAmountOfEntry)
	ctx.Step(`^I move entry "([^"]*)" to "([^"]*)"$`, iMoveEntry)
	ctx.Step(`^I delete entry "([^"]*)"$`, iDeleteEntry)
	ctx.Step(`^maintenance has settled$`, maintenanceHasSettled)
	ctx.Step(`^the balance of property "([^"]*)" should be "([^"]*)"$`, theBalanceOfPropertyShouldBe)
	ctx.Step(`^the stored balance of entry "([^"]*)" should be "([^"]*)"$`, theStoredBalanceOfEntryShouldBe)
	ctx.Step(`^the rollup "([^"]*)" of property "([^"]*)" should be "([^"]*)"$`, theRollupOfPropertyShouldBe)
	ctx.Step(`^the rollup "([^"]*)" of property "([^"]*)" should not exist$`, theRollupOfPropertyShouldNotExist)
	ctx.Step(`^the rollup "([^"]*)" of property "([^"]*)" is corrupted to "([^"]*)"$`, theRollupIsCorruptedTo)
	ctx.Step(`^the drift check should report (\d+) drifts?$`, theDriftCheckShouldReport)
}

func ownsProperty(ctx context.Context, email, name string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}

	property := &model.PropertyModel{
		ID:        uuid.New(),
		OwnerID:   tc.userID(email),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := tc.db.DbConn.Create(property).Error; err != nil {
		return ctx, fmt.Errorf("failed to create property: %w", err)
	}
	tc.properties[name] = property.ID
	return ctx, nil
}

func (tc *TestContext) property(name string) (uuid.UUID, error) {
	id, ok := tc.properties[name]
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown property %q", name)
	}
	return id, nil
}

func (tc *TestContext) entry(alias string) (int64, error) {
	id, ok := tc.entries[alias]
	if !ok {
		return 0, fmt.Errorf("unknown entry %q", alias)
	}
	return id, nil
}

// createEntry posts an entry and records its ID under alias.
func (tc *TestContext) createEntry(propertyName, alias string, payload map[string]any) error {
	propertyID, err := tc.property(propertyName)
	if err != nil {
		return err
	}
	if err := tc.doJSON(http.MethodPost, "/api/v1/properties/"+propertyID.String()+"/entries", payload); err != nil {
		return err
	}
	if err := tc.expectStatus(http.StatusCreated); err != nil {
		return err
	}

	data, err := tc.responseJSON()
	if err != nil {
		return err
	}
	id, ok := data["id"].(float64)
	if !ok {
		return fmt.Errorf("response has no entry id: %s", string(tc.responseBody))
	}
	tc.entries[alias] = int64(id)
	return nil
}

func iRecordAnEntry(ctx context.Context, kind, amount, date, propertyName, alias string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	return ctx, tc.createEntry(propertyName, alias, map[string]any{
		"kind":        kind,
		"amount":      amount,
		"ledger_date": date,
	})
}

func iRecordAnEntryBookedOn(ctx context.Context, kind, amount, ledgerDate, accountingDate, propertyName, alias string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	return ctx, tc.createEntry(propertyName, alias, map[string]any{
		"kind":            kind,
		"amount":          amount,
		"ledger_date":     ledgerDate,
		"accounting_date": accountingDate,
	})
}

func iRecordASplit(ctx context.Context, kind, amount, parentAlias, alias string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	parentID, err := tc.entry(parentAlias)
	if err != nil {
		return ctx, err
	}

	parent, err := persistence.NewLedgerEntryRepository(tc.db.DbConn).FindByID(ctx, parentID)
	if err != nil {
		return ctx, fmt.Errorf("failed to load parent: %w", err)
	}

	for name, id := range tc.properties {
		if id == parent.PropertyID {
			return ctx, tc.createEntry(name, alias, map[string]any{
				"kind":        kind,
				"amount":      amount,
				"ledger_date": parent.LedgerDate.Format("2006-01-02"),
				"parent_id":   parentID,
			})
		}
	}
	return ctx, fmt.Errorf("parent %q belongs to an unknown property", parentAlias)
}

func iAcceptEntry(ctx context.Context, alias string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	id, err := tc.entry(alias)
	if err != nil {
		return ctx, err
	}
	return ctx, tc.do(http.MethodPost, fmt.Sprintf("/api/v1/entries/%d/accept", id), nil)
}

func iAcceptEntries(ctx context.Context, aliases string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	for _, alias := range strings.Split(aliases, ",") {
		if _, err := iAcceptEntry(ctx, strings.TrimSpace(alias)); err != nil {
			return ctx, err
		}
		if err := tc.expectStatus(http.StatusAccepted); err != nil {
			return ctx, fmt.Errorf("accepting %q: %w", alias, err)
		}
	}
	return ctx, nil
}

func (tc *TestContext) patchEntry(alias string, payload map[string]any) error {
	id, err := tc.entry(alias)
	if err != nil {
		return err
	}
	return tc.doJSON(http.MethodPatch, fmt.Sprintf("/api/v1/entries/%d", id), payload)
}

func iChangeTheAmountOfEntry(ctx context.Context, alias, amount string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	return ctx, tc.patchEntry(alias, map[string]any{"amount": amount})
}

func iMoveEntry(ctx context.Context, alias, date string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	return ctx, tc.patchEntry(alias, map[string]any{
		"ledger_date":     date,
		"accounting_date": date,
	})
}

func iDeleteEntry(ctx context.Context, alias string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	id, err := tc.entry(alias)
	if err != nil {
		return ctx, err
	}
	return ctx, tc.do(http.MethodDelete, fmt.Sprintf("/api/v1/entries/%d", id), nil)
}

func maintenanceHasSettled(ctx context.Context) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	waitCtx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	if err := tc.injector.Events.Wait(waitCtx); err != nil {
		return ctx, fmt.Errorf("maintenance did not settle, %d pending: %w", tc.injector.Events.Pending(), err)
	}
	return ctx, nil
}

func theBalanceOfPropertyShouldBe(ctx context.Context, propertyName, expected string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	propertyID, err := tc.property(propertyName)
	if err != nil {
		return ctx, err
	}
	if err := tc.do(http.MethodGet, "/api/v1/properties/"+propertyID.String()+"/balance", nil); err != nil {
		return ctx, err
	}
	if err := tc.expectStatus(http.StatusOK); err != nil {
		return ctx, err
	}
	return ctx, theResponseFieldShouldBe(ctx, "balance", expected)
}

func theStoredBalanceOfEntryShouldBe(ctx context.Context, alias, expected string) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	id, err := tc.entry(alias)
	if err != nil {
		return err
	}
	entry, err := persistence.NewLedgerEntryRepository(tc.db.DbConn).FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load entry %q: %w", alias, err)
	}
	if !entry.BalanceApplied {
		return fmt.Errorf("entry %q has no balance applied", alias)
	}
	if actual := entry.Balance.StringFixed(entity.AmountDecimals); actual != expected {
		return fmt.Errorf("entry %q balance expected %s, got %s", alias, expected, actual)
	}
	return nil
}

// findRollup looks up a bucket written as KIND/all, KIND/2024 or KIND/2024-03.
func (tc *TestContext) findRollup(ctx context.Context, bucket, propertyName string) (*entity.RollupRecord, error) {
	propertyID, err := tc.property(propertyName)
	if err != nil {
		return nil, err
	}
	records, err := persistence.NewRollupRepository(tc.db.DbConn).ListByProperty(ctx, propertyID, entity.AllStatisticKinds)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollups: %w", err)
	}
	want := propertyID.String() + "/" + bucket
	for _, record := range records {
		if record.BucketKey.String() == want {
			return record, nil
		}
	}
	return nil, nil
}

func theRollupOfPropertyShouldBe(ctx context.Context, bucket, propertyName, expected string) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	record, err := tc.findRollup(ctx, bucket, propertyName)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("rollup %s of %q not found", bucket, propertyName)
	}
	if actual := record.Value.StringFixed(entity.AmountDecimals); actual != expected {
		return fmt.Errorf("rollup %s expected %s, got %s", bucket, expected, actual)
	}
	return nil
}

// theRollupOfPropertyShouldNotExist accepts a missing row or a zero value.
func theRollupOfPropertyShouldNotExist(ctx context.Context, bucket, propertyName string) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	record, err := tc.findRollup(ctx, bucket, propertyName)
	if err != nil {
		return err
	}
	if record != nil && !record.Value.IsZero() {
		return fmt.Errorf("rollup %s of %q expected empty, got %s", bucket, propertyName, record.Value.String())
	}
	return nil
}

func theRollupIsCorruptedTo(ctx context.Context, bucket, propertyName, value string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	record, err := tc.findRollup(ctx, bucket, propertyName)
	if err != nil {
		return ctx, err
	}
	if record == nil {
		return ctx, fmt.Errorf("rollup %s of %q not found", bucket, propertyName)
	}
	target, err := decimal.NewFromString(value)
	if err != nil {
		return ctx, err
	}
	delta := target.Sub(record.Value)
	if err := persistence.NewRollupRepository(tc.db.DbConn).UpsertAdd(ctx, record.BucketKey, delta); err != nil {
		return ctx, fmt.Errorf("failed to corrupt rollup: %w", err)
	}
	return ctx, nil
}

func theDriftCheckShouldReport(ctx context.Context, expected int) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	if err := tc.do(http.MethodPost, "/api/v1/admin/drift", nil); err != nil {
		return ctx, err
	}
	if err := tc.expectStatus(http.StatusOK); err != nil {
		return ctx, err
	}
	data, err := tc.responseJSON()
	if err != nil {
		return ctx, err
	}
	drifts, _ := data["drifts"].([]any)
	if len(drifts) != expected {
		return ctx, fmt.Errorf("expected %d drifts, got %d. Body: %s", expected, len(drifts), string(tc.responseBody))
	}
	return ctx, nil
}
