package core

import "github.com/ethereum/go-ethereum/common"

// DefaultRecipient receives every token minted through the shell
var DefaultRecipient = common.HexToAddress("0xD8532152a3F66bD590F29ce711C8ecCa5542325b")

// Video721Address is the deployed Video721 contract on Goerli
var Video721Address = common.HexToAddress("0x8ea11069484dA05d463946AFEDa9017503B30afA")

// ContractDescriptor pairs a deployed contract address with its ABI.
// Descriptors are values; nothing mutates them after load.
type ContractDescriptor struct {
	Name    string
	Address common.Address
	ABI     string
}

// WithAddress returns a copy of the descriptor pointing at another deployment
func (d ContractDescriptor) WithAddress(addr common.Address) ContractDescriptor {
	d.Address = addr
	return d
}

// Video721 is the descriptor of the video NFT contract
var Video721 = ContractDescriptor{
	Name:    "Video721",
	Address: Video721Address,
	ABI:     video721ABI,
}

const video721ABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "string", "name": "uri", "type": "string"}
		],
		"name": "safeMint",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
		"name": "tokenURI",
		"outputs": [{"internalType": "string", "name": "", "type": "string"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
		"name": "ownerOf",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "name",
		"outputs": [{"internalType": "string", "name": "", "type": "string"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "symbol",
		"outputs": [{"internalType": "string", "name": "", "type": "string"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "owner",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "from", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "to", "type": "address"},
			{"indexed": true, "internalType": "uint256", "name": "tokenId", "type": "uint256"}
		],
		"name": "Transfer",
		"type": "event"
	}
]`
