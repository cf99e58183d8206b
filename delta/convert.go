package delta

import (
	"fmt"

	"pok.dev/core/types"
)

func txToMap(tx types.Transaction) map[string]any {
	return map[string]any{
		"id":          tx.ID,
		"timestamp":   tx.Timestamp,
		"owner":       tx.Owner,
		"question_id": tx.QuestionID,
		"kind":        string(tx.Kind),
		"payload": map[string]any{
			"answer": tx.Payload.Answer,
			"hash":   tx.Payload.Hash,
		},
	}
}

func txFromMap(v any) (types.Transaction, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return types.Transaction{}, newErr(ErrDecode, "transaction entry is not a map")
	}
	id, ok := m["id"].(string)
	if !ok {
		return types.Transaction{}, newErr(ErrDecode, "transaction missing string id")
	}
	ts, ok := m["timestamp"].(int64)
	if !ok {
		return types.Transaction{}, newErr(ErrDecode, "transaction missing integer timestamp")
	}
	owner, ok := m["owner"].(string)
	if !ok {
		return types.Transaction{}, newErr(ErrDecode, "transaction missing string owner")
	}
	qid, ok := m["question_id"].(string)
	if !ok {
		return types.Transaction{}, newErr(ErrDecode, "transaction missing string question_id")
	}
	kindStr, ok := m["kind"].(string)
	if !ok {
		return types.Transaction{}, newErr(ErrDecode, "transaction missing string kind")
	}
	kind := types.Kind(kindStr)
	if !kind.Valid() {
		return types.Transaction{}, newErr(ErrDecode, fmt.Sprintf("invalid transaction kind %q", kindStr))
	}
	payloadRaw, ok := m["payload"].(map[string]any)
	if !ok {
		return types.Transaction{}, newErr(ErrDecode, "transaction missing payload map")
	}
	hash, _ := payloadRaw["hash"].(string)

	return types.Transaction{
		ID:         id,
		Timestamp:  ts,
		Owner:      owner,
		QuestionID: qid,
		Kind:       kind,
		Payload:    types.Payload{Answer: payloadRaw["answer"], Hash: hash},
	}, nil
}

func blockToMap(b types.Block) map[string]any {
	txs := make([]any, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		txs = append(txs, txToMap(tx))
	}
	return map[string]any{
		"hash":         b.Hash,
		"timestamp":    b.Timestamp,
		"proposer":     b.Proposer,
		"kind":         b.Kind,
		"transactions": txs,
	}
}

func blockFromMap(v any) (types.Block, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return types.Block{}, newErr(ErrDecode, "block entry is not a map")
	}
	h, ok := m["hash"].(string)
	if !ok {
		return types.Block{}, newErr(ErrDecode, "block missing string hash")
	}
	ts, ok := m["timestamp"].(int64)
	if !ok {
		return types.Block{}, newErr(ErrDecode, "block missing integer timestamp")
	}
	proposer, ok := m["proposer"].(string)
	if !ok {
		return types.Block{}, newErr(ErrDecode, "block missing string proposer")
	}
	kind, ok := m["kind"].(string)
	if !ok {
		return types.Block{}, newErr(ErrDecode, "block missing string kind")
	}
	txsRaw, ok := m["transactions"].([]any)
	if !ok {
		return types.Block{}, newErr(ErrDecode, "block missing transactions array")
	}
	txs := make([]types.Transaction, 0, len(txsRaw))
	for _, raw := range txsRaw {
		tx, err := txFromMap(raw)
		if err != nil {
			return types.Block{}, err
		}
		txs = append(txs, tx)
	}
	return types.Block{Hash: h, Timestamp: ts, Proposer: proposer, Kind: kind, Transactions: txs}, nil
}
