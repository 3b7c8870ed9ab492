package rpc

import (
	"encoding/json"
	"strings"

	"marketd/native/market"
)

// Transfer notifications arrive with the caller's identity already verified
// by the host; the handlers below only validate shape.

type withdrawParams struct {
	Sender     string `json:"sender"`
	OfferingID string `json:"offering_id"`
}

func decodeParams(req *rpcRequest, out interface{}) *rpcError {
	if len(req.Params) != 1 {
		return &rpcError{Code: codeInvalidParams, Message: "expected exactly one parameter object"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &rpcError{Code: codeInvalidParams, Message: "malformed parameter object"}
	}
	return nil
}

func (s *Server) handleList(req *rpcRequest) (interface{}, *rpcError) {
	var notice market.ReceiveNftNotice
	if rpcErr := decodeParams(req, &notice); rpcErr != nil {
		return nil, rpcErr
	}
	if strings.TrimSpace(notice.Sender) == "" {
		return nil, &rpcError{Code: codeInvalidParams, Message: "sender must not be empty"}
	}
	receipt, err := s.engine.List(
		notice.Sender,
		notice.AssetContract,
		notice.AssetID,
		notice.Msg.ListPrice.Coin(),
		notice.Msg.Extension,
	)
	if err != nil {
		return nil, engineError(err)
	}
	return receipt, nil
}

func (s *Server) handleBuy(req *rpcRequest) (interface{}, *rpcError) {
	var notice market.ReceiveNotice
	if rpcErr := decodeParams(req, &notice); rpcErr != nil {
		return nil, rpcErr
	}
	if strings.TrimSpace(notice.Sender) == "" {
		return nil, &rpcError{Code: codeInvalidParams, Message: "sender must not be empty"}
	}
	if strings.TrimSpace(notice.Msg.OfferingID) == "" {
		return nil, &rpcError{Code: codeInvalidParams, Message: "offering_id must not be empty"}
	}
	tendered := market.Coin{TokenContract: notice.TokenContract, Amount: notice.Amount}
	receipt, err := s.engine.Buy(notice.Msg.OfferingID, notice.Sender, tendered)
	if err != nil {
		return nil, engineError(err)
	}
	return receipt, nil
}

func (s *Server) handleWithdraw(req *rpcRequest) (interface{}, *rpcError) {
	var params withdrawParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if strings.TrimSpace(params.Sender) == "" {
		return nil, &rpcError{Code: codeInvalidParams, Message: "sender must not be empty"}
	}
	if strings.TrimSpace(params.OfferingID) == "" {
		return nil, &rpcError{Code: codeInvalidParams, Message: "offering_id must not be empty"}
	}
	receipt, err := s.engine.Withdraw(params.OfferingID, params.Sender)
	if err != nil {
		return nil, engineError(err)
	}
	return receipt, nil
}

func (s *Server) handleGetOfferings() (interface{}, *rpcError) {
	resp, err := s.engine.Offerings()
	if err != nil {
		return nil, engineError(err)
	}
	return resp, nil
}

func (s *Server) handleGetCount() (interface{}, *rpcError) {
	resp, err := s.engine.LegacyCount()
	if err != nil {
		return nil, engineError(err)
	}
	return resp, nil
}
