// Package reporting renders cycle and leg views for export.
package reporting

import (
	"fmt"
	"strings"

	"github.com/themeshri/onchain-journal-app/internal/domain"
)

// RenderCyclesCSV renders the cross-token cycle presentation list as CSV.
func RenderCyclesCSV(views []*domain.CycleView) string {
	var sb strings.Builder

	sb.WriteString("global_sequence,token_mint,token_symbol,sequence_number,leg_count,")
	sb.WriteString("total_buy_amount,total_buy_value_usd,total_sell_amount,total_sell_value_usd,")
	sb.WriteString("start_balance,end_balance,realized_pnl,complete,")
	sb.WriteString("start_timestamp,end_timestamp,duration_seconds,unknown_value_legs\n")

	for _, v := range views {
		endTS := ""
		duration := ""
		if v.EndTimestamp != nil {
			endTS = fmt.Sprintf("%d", *v.EndTimestamp)
		}
		if v.DurationSeconds != nil {
			duration = fmt.Sprintf("%d", *v.DurationSeconds)
		}
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%t,%d,%s,%s,%d\n",
			v.GlobalSequence,
			v.TokenMint,
			v.TokenSymbol,
			v.SequenceNumber,
			len(v.Legs),
			v.TotalBuyAmount,
			v.TotalBuyValueUsd,
			v.TotalSellAmount,
			v.TotalSellValueUsd,
			v.StartBalance,
			v.EndBalance,
			v.RealizedPnl,
			v.Complete,
			v.StartTimestamp,
			endTS,
			duration,
			v.UnknownValueLegs,
		))
	}

	return sb.String()
}

// RenderLegsCSV renders a labeled leg history as CSV.
func RenderLegsCSV(legs []*domain.Leg) string {
	var sb strings.Builder

	sb.WriteString("signature,timestamp,slot,direction,token_mint,token_symbol,counter_mint,")
	sb.WriteString("amount,usd_value,usd_unknown,venue,fee_lamports,transaction_type\n")

	for _, l := range legs {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%s,%s,%s,%s,%.6f,%.6f,%t,%s,%d,%s\n",
			l.Signature,
			l.Timestamp,
			l.Slot,
			l.Direction,
			l.TokenMint,
			l.TokenSymbol,
			l.CounterMint,
			l.Amount,
			l.UsdValue,
			l.UsdUnknown,
			l.Venue,
			l.FeeLamports,
			l.TransactionType,
		))
	}

	return sb.String()
}
