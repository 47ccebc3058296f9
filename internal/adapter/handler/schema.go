package handler

const purchaseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["plotId", "ownerAddress", "transactionSignature", "price", "paymentMethod"],
  "properties": {
    "plotId": {"type": "string", "pattern": "^[0-9]+-[0-9]+$"},
    "ownerAddress": {"type": "string", "minLength": 32, "maxLength": 44},
    "transactionSignature": {"type": "string", "minLength": 1, "maxLength": 128},
    "price": {
      "oneOf": [
        {"type": "number", "minimum": 0},
        {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?$"}
      ]
    },
    "paymentMethod": {"type": "string", "enum": ["SOL", "TOKEN", "sol", "token"]}
  }
}`
