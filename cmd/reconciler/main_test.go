package main

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

func TestRender(t *testing.T) {
	v := map[string]any{"mode": "DAILY", "count": 2}

	var js bytes.Buffer
	require.NoError(t, render(&js, outputJSON, v))
	assert.JSONEq(t, `{"mode":"DAILY","count":2}`, js.String())

	var ym bytes.Buffer
	require.NoError(t, render(&ym, outputYAML, v))
	var back map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &back))
	assert.Equal(t, "DAILY", back["mode"])
	assert.Equal(t, 2, back["count"])
}

func TestValidateOutput(t *testing.T) {
	assert.NoError(t, validateOutput("json"))
	assert.NoError(t, validateOutput("yaml"))
	assert.Error(t, validateOutput("table"))
}

func TestReconcileOptions_Params(t *testing.T) {
	tenant := uuid.New()
	invoice := uuid.New()

	tests := []struct {
		name    string
		mode    domain.ReconciliationMode
		opts    reconcileOptions
		wantErr bool
	}{
		{name: "daily all tenants", mode: domain.ReconciliationModeDaily},
		{name: "weekly one tenant", mode: domain.ReconciliationModeWeekly, opts: reconcileOptions{tenant: tenant.String()}},
		{name: "manual with invoice", mode: domain.ReconciliationModeManual, opts: reconcileOptions{invoices: []string{invoice.String()}}},
		{name: "manual without ids", mode: domain.ReconciliationModeManual, wantErr: true},
		{name: "ids on daily", mode: domain.ReconciliationModeDaily, opts: reconcileOptions{payments: []string{invoice.String()}}, wantErr: true},
		{name: "bad tenant", mode: domain.ReconciliationModeDaily, opts: reconcileOptions{tenant: "acme"}, wantErr: true},
		{name: "bad invoice id", mode: domain.ReconciliationModeManual, opts: reconcileOptions{invoices: []string{"x"}}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params, err := tc.opts.params(tc.mode)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tc.opts.tenant != "" {
				require.NotNil(t, params.TenantID)
				assert.Equal(t, tenant, *params.TenantID)
			} else {
				assert.Nil(t, params.TenantID)
			}
			assert.Len(t, params.InvoiceIDs, len(tc.opts.invoices))
		})
	}
}

func TestRootCmd_RejectsUnknownMode(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"reconcile", "hourly"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestRootCmd_RejectsUnknownOutput(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"match", uuid.NewString(), "--output", "table"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}
